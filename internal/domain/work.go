package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Roles a collaborator can hold on a work. A collaborator holding several
// roles on the same work gets one CollaboratorShare row per role.
const (
	RoleWriter   = "writer"
	RoleArtist   = "artist"
	RoleMusician = "musician"
	RoleProducer = "producer"
	RoleLabel    = "label"
)

// Lockable facets of a work's splits.
const (
	FacetPublishing = "publishing"
	FacetMaster     = "master"
)

type Work struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	PublishingLocked bool      `gorm:"default:false" json:"publishing_locked"`
	MasterLocked     bool      `gorm:"default:false" json:"master_locked"`
	LabelMasterShare float64   `json:"label_master_share"` // fraction 0..1
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Collaborator struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	LegalName string    `json:"legal_name"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PublishingEntity struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	External  bool      `gorm:"default:false" json:"external"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CollaboratorShare holds one role's ownership fractions for a collaborator
// on a work. Ownerships are nullable: nil means the collaborator simply has
// no stake in that facet.
type CollaboratorShare struct {
	ID                  uint64       `json:"id"`
	WorkID              uint64       `gorm:"index:idx_collab_share_work_role,priority:1" json:"work_id"`
	Work                Work         `json:"-"`
	CollaboratorID      uint64       `gorm:"index:idx_collab_share_work_role,priority:2" json:"collaborator_id"`
	Collaborator        Collaborator `json:"-"`
	RoleInSong          string       `gorm:"index:idx_collab_share_work_role,priority:3" json:"role_in_song"`
	PublishingOwnership *float64     `json:"publishing_ownership"` // fraction 0..1
	MasterOwnership     *float64     `json:"master_ownership"`     // fraction 0..1
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

type PublishingEntityShare struct {
	ID                  uint64           `json:"id"`
	WorkID              uint64           `gorm:"index" json:"work_id"`
	Work                Work             `json:"-"`
	PublishingEntityID  uint64           `json:"publishing_entity_id"`
	PublishingEntity    PublishingEntity `json:"-"`
	OwnershipPercentage float64          `json:"ownership_percentage"` // fraction 0..1
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// SplitRevision is an append-only journal row recording the full state of a
// facet's split set after every ledger write. It is never read back by the
// ledger; it exists so past allocations stay auditable after a lock or a
// later correction.
type SplitRevision struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkID    uint64         `gorm:"index" json:"work_id"`
	Facet     string         `json:"facet"`
	Snapshot  datatypes.JSON `json:"snapshot"`
	CreatedAt time.Time      `json:"created_at"`
}
