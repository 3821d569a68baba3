package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Contract template types. LabelRecord names a real template but is never
// derived from a collaborator share: the label role is internal and does not
// bear a contract.
const (
	TemplateSongwriterPublishing = "songwriter_publishing"
	TemplateDigitalMasterOnly    = "digital_master_only"
	TemplateProducerAgreement    = "producer_agreement"
	TemplateLabelRecord          = "label_record"
)

// E-signature statuses.
const (
	StatusPending  = "pending"
	StatusSigned   = "signed"
	StatusDeclined = "declined"
)

type Contract struct {
	ID                  uint64            `json:"id"`
	WorkID              uint64            `gorm:"index" json:"work_id"`
	Work                Work              `json:"-"`
	CollaboratorShareID uint64            `gorm:"index" json:"collaborator_share_id"`
	CollaboratorShare   CollaboratorShare `json:"-"`
	TemplateType        string            `json:"template_type"`
	EsignatureStatus    string            `gorm:"default:pending" json:"esignature_status"`
	EsignatureDocID     *string           `gorm:"index" json:"esignature_doc_id"`
	SignedAt            *time.Time        `json:"signed_at"`
	SignedPdfData       []byte            `gorm:"type:bytea" json:"-"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// WebhookReceipt journals every authenticated inbound provider event with
// its raw payload, before the event is applied to any contract.
type WebhookReceipt struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Provider   string         `json:"provider"`
	EventKind  string         `json:"event_kind"`
	DocumentID string         `gorm:"index" json:"document_id"`
	Payload    datatypes.JSON `json:"payload"`
	ReceivedAt time.Time      `json:"received_at"`
}
