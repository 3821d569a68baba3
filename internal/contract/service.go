package contract

import (
	"context"
	defError "errors"
	"fmt"
	"time"

	"royalty-split-manager/internal/domain"
	"royalty-split-manager/internal/errors"
	"royalty-split-manager/internal/esign"
	"royalty-split-manager/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service interface {
	GenerateForWork(ctx context.Context, workID uint64) ([]domain.Contract, error)
	SendContract(ctx context.Context, contractID uint64) (*domain.Contract, error)
	HandleWebhook(ctx context.Context, rawBody, eventJSON []byte, signatureHeader string) error
	GetStatus(ctx context.Context, contractID uint64) (*StatusResponse, error)
	GetDocument(ctx context.Context, contractID uint64) (*AssembledDocument, *domain.Contract, error)
	ListWorkContracts(ctx context.Context, workID uint64, page, pageSize int) ([]domain.Contract, ContractsMeta, error)
}

type DefaultService struct {
	repository    Repository
	provider      esign.Client
	assembler     *Assembler
	pool          *worker.WorkerPool
	webhookSecret string
}

func NewService(
	repository Repository,
	provider esign.Client,
	assembler *Assembler,
	pool *worker.WorkerPool,
	webhookSecret string,
) Service {
	return &DefaultService{
		repository:    repository,
		provider:      provider,
		assembler:     assembler,
		pool:          pool,
		webhookSecret: webhookSecret,
	}
}

// facetLockedFor reports whether the facet a template type derives from is
// locked. Contracts are only generated once their underlying splits are
// final.
func facetLockedFor(templateType string, work *domain.Work) bool {
	switch templateType {
	case domain.TemplateSongwriterPublishing:
		return work.PublishingLocked
	case domain.TemplateDigitalMasterOnly, domain.TemplateProducerAgreement, domain.TemplateLabelRecord:
		return work.MasterLocked
	}
	return false
}

// GenerateForWork resolves the required contract types for every
// collaborator share on the work, dispatches each document to the provider,
// and creates the contract rows. A contract row only exists once its send
// succeeded, so there is never a row with a doc id but no send confirmation.
func (s *DefaultService) GenerateForWork(ctx context.Context, workID uint64) ([]domain.Contract, error) {
	work, err := s.repository.FindWork(ctx, workID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Work not found", err)
		}
		return nil, err
	}

	shares, err := s.repository.ListCollaboratorShares(ctx, workID)
	if err != nil {
		return nil, err
	}

	created := make([]domain.Contract, 0)
	for _, share := range shares {
		for templateType := range ResolveForShare(share) {
			if !facetLockedFor(templateType, work) {
				continue
			}

			exists, err := s.repository.HasContract(ctx, share.ID, templateType)
			if err != nil {
				return created, err
			}
			if exists {
				continue
			}

			contract := domain.Contract{
				WorkID:              workID,
				CollaboratorShareID: share.ID,
				CollaboratorShare:   share,
				Work:                *work,
				TemplateType:        templateType,
				EsignatureStatus:    domain.StatusPending,
			}

			docID, err := s.dispatch(ctx, &contract)
			if err != nil {
				return created, errors.Provider(
					fmt.Sprintf("Failed to dispatch %s contract for collaborator %d", templateType, share.CollaboratorID),
					err,
				)
			}

			contract.EsignatureDocID = &docID
			if err := s.repository.CreateContract(ctx, &contract); err != nil {
				return created, err
			}
			created = append(created, contract)
		}
	}

	return created, nil
}

// SendContract (re)dispatches an existing contract. A contract already out
// with the provider cannot be sent again until a cancellation clears its
// doc id.
func (s *DefaultService) SendContract(ctx context.Context, contractID uint64) (*domain.Contract, error) {
	contract, err := s.repository.FindContractWithRelations(ctx, contractID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Contract not found", err)
		}
		return nil, err
	}
	if contract.EsignatureDocID != nil {
		return nil, errors.Conflict("Contract is already out for signature", nil)
	}

	docID, err := s.dispatch(ctx, contract)
	if err != nil {
		// No mutation on failure: the contract keeps no doc id.
		return nil, errors.Provider("Failed to dispatch contract to the e-signature provider", err)
	}

	if err := s.repository.MarkSent(ctx, contract.ID, docID); err != nil {
		return nil, err
	}
	contract.EsignatureDocID = &docID
	contract.EsignatureStatus = domain.StatusPending

	return contract, nil
}

// dispatch renders the unsigned document and sends it for signature,
// returning the provider document id.
func (s *DefaultService) dispatch(ctx context.Context, contract *domain.Contract) (string, error) {
	pdf, err := s.assembler.RenderUnsigned(ctx, contract)
	if err != nil {
		return "", err
	}

	collaborator := contract.CollaboratorShare.Collaborator
	return s.provider.SendDocument(ctx, esign.SendDocumentRequest{
		Name: fmt.Sprintf("%s - %s", contract.TemplateType, contract.Work.Title),
		PDF:  pdf,
		Recipient: esign.Recipient{
			Name:  collaborator.Name,
			Email: collaborator.Email,
		},
	})
}

// HandleWebhook authenticates, journals, and applies one inbound provider
// event. The HMAC covers the raw request body; eventJSON is the payload to
// parse (the raw body, or the `json` field of a form-encoded delivery).
// Only a signature mismatch or an unparseable body surface as errors;
// anything else is acknowledged so the provider does not retry
// application-level conditions.
func (s *DefaultService) HandleWebhook(ctx context.Context, rawBody, eventJSON []byte, signatureHeader string) error {
	if s.webhookSecret != "" {
		if !VerifySignature(s.webhookSecret, rawBody, signatureHeader) {
			return errors.Authentication("Webhook signature mismatch", nil)
		}
	}

	event, err := ParseEvent(eventJSON)
	if err != nil {
		return errors.BadRequest("Unparseable webhook payload", err)
	}

	receipt := &domain.WebhookReceipt{
		ID:         uuid.New(),
		Provider:   "signwell",
		EventKind:  string(event.Kind),
		DocumentID: event.DocumentID,
		Payload:    event.Payload,
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.repository.CreateReceipt(ctx, receipt); err != nil {
		log.Error().Err(err).Str("document_id", event.DocumentID).Msg("Failed to journal webhook receipt")
	}

	if event.DocumentID == "" || event.Kind == EventUnknown {
		log.Info().Str("event_type", event.RawType).Msg("Ignoring webhook event")
		return nil
	}

	s.applyEvent(ctx, event)
	return nil
}

// applyEvent runs one tagged event through the transition rules. Failures
// are logged, never surfaced: webhook delivery is at-least-once, and the
// provider must not retry on our storage hiccups.
func (s *DefaultService) applyEvent(ctx context.Context, event *SignatureEvent) {
	switch event.Kind {
	case EventCompleted:
		signedAt := time.Now().UTC()
		if event.Timestamp != nil {
			signedAt = *event.Timestamp
		}
		contract, applied, err := s.repository.ApplyCompleted(ctx, event.DocumentID, signedAt)
		if err != nil {
			log.Error().Err(err).Str("document_id", event.DocumentID).Msg("Failed to apply completed event")
			return
		}
		if contract == nil {
			// Unknown document: may legitimately belong to another system.
			log.Info().Str("document_id", event.DocumentID).Msg("Completed event for unknown document, dropped")
			return
		}
		if applied {
			s.prefetchSignedPDF(contract.ID, event.DocumentID)
		}

	case EventDeclined:
		contract, _, err := s.repository.ApplyDeclined(ctx, event.DocumentID)
		if err != nil {
			log.Error().Err(err).Str("document_id", event.DocumentID).Msg("Failed to apply declined event")
			return
		}
		if contract == nil {
			log.Info().Str("document_id", event.DocumentID).Msg("Declined event for unknown document, dropped")
		}

	case EventCanceled:
		contract, _, err := s.repository.ApplyCanceled(ctx, event.DocumentID)
		if err != nil {
			log.Error().Err(err).Str("document_id", event.DocumentID).Msg("Failed to apply canceled event")
			return
		}
		if contract == nil {
			log.Info().Str("document_id", event.DocumentID).Msg("Canceled event for unknown document, dropped")
		}
	}
}

// prefetchSignedPDF schedules a one-shot background fetch of the signed
// artifact. Submitted only on an applied signed transition, so webhook
// replay never fetches twice.
func (s *DefaultService) prefetchSignedPDF(contractID uint64, docID string) {
	if s.pool == nil {
		return
	}
	s.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		pdf, err := s.provider.DownloadCompletedPDF(ctx, docID)
		if err != nil {
			return fmt.Errorf("prefetch signed pdf for contract %d: %w", contractID, err)
		}
		return s.repository.SaveSignedPDF(ctx, contractID, pdf)
	})
}

type StatusResponse struct {
	ContractID uint64         `json:"contract_id"`
	Status     string         `json:"status"`
	SignedAt   *time.Time     `json:"signed_at,omitempty"`
	Source     string         `json:"source"`
	Signers    []esign.Signer `json:"signers,omitempty"`
	Warning    string         `json:"warning,omitempty"`
}

// GetStatus reconciles the stored signature status with the provider on
// demand. Provider failures degrade to the last known local status with a
// warning; they never surface to the caller.
func (s *DefaultService) GetStatus(ctx context.Context, contractID uint64) (*StatusResponse, error) {
	contract, err := s.repository.FindContract(ctx, contractID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Contract not found", err)
		}
		return nil, err
	}

	local := &StatusResponse{
		ContractID: contract.ID,
		Status:     contract.EsignatureStatus,
		SignedAt:   contract.SignedAt,
		Source:     "local",
	}

	// Never sent: nothing to ask the provider about.
	if contract.EsignatureDocID == nil {
		return local, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	providerStatus, err := s.provider.GetDocumentStatus(ctx, *contract.EsignatureDocID)
	if err != nil {
		log.Warn().Err(err).Uint64("contract_id", contract.ID).Msg("Provider status check failed, serving local status")
		local.Warning = "Provider status check failed; showing last known status"
		return local, nil
	}

	if providerStatus.Status != contract.EsignatureStatus {
		var signedAt *time.Time
		if providerStatus.Status == domain.StatusSigned {
			if providerStatus.SignedAt != nil {
				signedAt = providerStatus.SignedAt
			} else {
				now := time.Now().UTC()
				signedAt = &now
			}
		}
		if err := s.repository.UpdateStatus(ctx, contract.ID, providerStatus.Status, signedAt); err != nil {
			return nil, err
		}
		if signedAt != nil {
			local.SignedAt = signedAt
		}
	}

	local.Status = providerStatus.Status
	local.Source = "provider"
	local.Signers = providerStatus.Signers
	return local, nil
}

func (s *DefaultService) GetDocument(ctx context.Context, contractID uint64) (*AssembledDocument, *domain.Contract, error) {
	return s.assembler.GetDocument(ctx, contractID)
}

func (s *DefaultService) ListWorkContracts(ctx context.Context, workID uint64, page, pageSize int) ([]domain.Contract, ContractsMeta, error) {
	return s.repository.ListByWork(ctx, workID, page, pageSize)
}
