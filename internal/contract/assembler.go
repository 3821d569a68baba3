package contract

import (
	"context"
	defError "errors"

	"royalty-split-manager/internal/domain"
	"royalty-split-manager/internal/errors"
	"royalty-split-manager/internal/esign"
	"royalty-split-manager/internal/render"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Assembler resolves a contract's document bytes through an ordered
// fallback chain: stored signed blob, provider fetch (cached once), local
// unsigned re-render. Each tier either produces the document, passes to the
// next tier, or fails the request (last tier only).
type Assembler struct {
	repository Repository
	provider   esign.Client
	renderer   render.Client
}

func NewAssembler(repository Repository, provider esign.Client, renderer render.Client) *Assembler {
	return &Assembler{
		repository: repository,
		provider:   provider,
		renderer:   renderer,
	}
}

type AssembledDocument struct {
	Data   []byte
	Signed bool
}

type assemblyTier func(ctx context.Context, contract *domain.Contract) (*AssembledDocument, error)

func (a *Assembler) GetDocument(ctx context.Context, contractID uint64) (*AssembledDocument, *domain.Contract, error) {
	contract, err := a.repository.FindContractWithRelations(ctx, contractID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.NotFound("Contract not found", err)
		}
		return nil, nil, err
	}

	tiers := []assemblyTier{
		a.storedSignedPDF,
		a.fetchSignedPDF,
		a.renderPreview,
	}

	for _, tier := range tiers {
		doc, err := tier(ctx, contract)
		if err != nil {
			return nil, nil, err
		}
		if doc != nil {
			return doc, contract, nil
		}
	}

	// renderPreview either succeeds or errors, so this is unreachable.
	return nil, nil, errors.Render(nil)
}

func (a *Assembler) storedSignedPDF(_ context.Context, contract *domain.Contract) (*AssembledDocument, error) {
	if len(contract.SignedPdfData) == 0 {
		return nil, nil
	}
	return &AssembledDocument{Data: contract.SignedPdfData, Signed: true}, nil
}

// fetchSignedPDF retrieves the signed artifact from the provider and caches
// it, so the next call takes the stored tier. Provider failures fall
// through to the local re-render.
func (a *Assembler) fetchSignedPDF(ctx context.Context, contract *domain.Contract) (*AssembledDocument, error) {
	if contract.EsignatureStatus != domain.StatusSigned || contract.EsignatureDocID == nil {
		return nil, nil
	}

	pdf, err := a.provider.DownloadCompletedPDF(ctx, *contract.EsignatureDocID)
	if err != nil {
		log.Warn().Err(err).Uint64("contract_id", contract.ID).Msg("Signed document fetch failed, falling back to local render")
		return nil, nil
	}

	if err := a.repository.SaveSignedPDF(ctx, contract.ID, pdf); err != nil {
		log.Error().Err(err).Uint64("contract_id", contract.ID).Msg("Failed to cache signed document")
	}
	contract.SignedPdfData = pdf

	return &AssembledDocument{Data: pdf, Signed: true}, nil
}

func (a *Assembler) renderPreview(ctx context.Context, contract *domain.Contract) (*AssembledDocument, error) {
	pdf, err := a.RenderUnsigned(ctx, contract)
	if err != nil {
		return nil, err
	}
	return &AssembledDocument{Data: pdf, Signed: false}, nil
}

// RenderUnsigned assembles the structured contract data from the work, the
// collaborator share, and the work's publisher splits, then runs it through
// the template and PDF collaborators.
func (a *Assembler) RenderUnsigned(ctx context.Context, contract *domain.Contract) ([]byte, error) {
	entityShares, err := a.repository.ListPublishingEntityShares(ctx, contract.WorkID)
	if err != nil {
		return nil, err
	}

	publisherSplits := make([]render.PublisherSplitEntry, 0, len(entityShares))
	for _, s := range entityShares {
		publisherSplits = append(publisherSplits, render.PublisherSplitEntry{
			Name:       s.PublishingEntity.Name,
			Percentage: s.OwnershipPercentage * 100,
		})
	}

	share := contract.CollaboratorShare
	data := render.ContractData{
		TemplateType:     contract.TemplateType,
		WorkTitle:        contract.Work.Title,
		CollaboratorName: share.Collaborator.Name,
		LegalName:        share.Collaborator.LegalName,
		RoleInSong:       share.RoleInSong,
		PublishingShare:  share.PublishingOwnership,
		MasterShare:      share.MasterOwnership,
		LabelMasterShare: contract.Work.LabelMasterShare,
		PublisherSplits:  publisherSplits,
	}

	html, err := a.renderer.RenderHTML(ctx, data)
	if err != nil {
		return nil, errors.Render(err)
	}

	pdf, err := a.renderer.RenderPDF(ctx, html)
	if err != nil {
		return nil, errors.Render(err)
	}

	return pdf, nil
}
