package contract

import (
	"context"
	"errors"
	"time"

	"royalty-split-manager/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	FindContract(ctx context.Context, id uint64) (*domain.Contract, error)
	FindContractWithRelations(ctx context.Context, id uint64) (*domain.Contract, error)
	FindByDocID(ctx context.Context, docID string) (*domain.Contract, error)
	ListByWork(ctx context.Context, workID uint64, page, pageSize int) ([]domain.Contract, ContractsMeta, error)
	FindWork(ctx context.Context, workID uint64) (*domain.Work, error)
	ListCollaboratorShares(ctx context.Context, workID uint64) ([]domain.CollaboratorShare, error)
	ListPublishingEntityShares(ctx context.Context, workID uint64) ([]domain.PublishingEntityShare, error)
	HasContract(ctx context.Context, shareID uint64, templateType string) (bool, error)
	CreateContract(ctx context.Context, contract *domain.Contract) error
	MarkSent(ctx context.Context, contractID uint64, docID string) error
	ApplyCompleted(ctx context.Context, docID string, signedAt time.Time) (*domain.Contract, bool, error)
	ApplyDeclined(ctx context.Context, docID string) (*domain.Contract, bool, error)
	ApplyCanceled(ctx context.Context, docID string) (*domain.Contract, bool, error)
	UpdateStatus(ctx context.Context, contractID uint64, status string, signedAt *time.Time) error
	SaveSignedPDF(ctx context.Context, contractID uint64, pdf []byte) error
	CreateReceipt(ctx context.Context, receipt *domain.WebhookReceipt) error
}

type ContractsMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) FindContract(ctx context.Context, id uint64) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).First(&contract, id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *RepositoryImpl) FindContractWithRelations(ctx context.Context, id uint64) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).
		Preload("Work").
		Preload("CollaboratorShare").
		Preload("CollaboratorShare.Collaborator").
		First(&contract, id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *RepositoryImpl) FindByDocID(ctx context.Context, docID string) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).
		Where("esignature_doc_id = ?", docID).
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *RepositoryImpl) ListByWork(ctx context.Context, workID uint64, page, pageSize int) ([]domain.Contract, ContractsMeta, error) {
	var contracts []domain.Contract
	var totalRecords int64

	if err := r.db.WithContext(ctx).Model(&domain.Contract{}).
		Where("work_id = ?", workID).
		Count(&totalRecords).Error; err != nil {
		return contracts, ContractsMeta{}, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Where("work_id = ?", workID).
		Offset(offset).
		Limit(pageSize).
		Order("id ASC").
		Find(&contracts).Error

	totalPages := int((totalRecords + int64(pageSize) - 1) / int64(pageSize))

	return contracts, ContractsMeta{
		Total:       totalRecords,
		PerPage:     pageSize,
		TotalPage:   totalPages,
		CurrentPage: page,
	}, err
}

func (r *RepositoryImpl) FindWork(ctx context.Context, workID uint64) (*domain.Work, error) {
	var work domain.Work
	err := r.db.WithContext(ctx).First(&work, workID).Error
	if err != nil {
		return nil, err
	}
	return &work, nil
}

func (r *RepositoryImpl) ListCollaboratorShares(ctx context.Context, workID uint64) ([]domain.CollaboratorShare, error) {
	var shares []domain.CollaboratorShare
	err := r.db.WithContext(ctx).
		Preload("Collaborator").
		Where("work_id = ?", workID).
		Find(&shares).Error
	return shares, err
}

func (r *RepositoryImpl) ListPublishingEntityShares(ctx context.Context, workID uint64) ([]domain.PublishingEntityShare, error) {
	var shares []domain.PublishingEntityShare
	err := r.db.WithContext(ctx).
		Preload("PublishingEntity").
		Where("work_id = ?", workID).
		Find(&shares).Error
	return shares, err
}

func (r *RepositoryImpl) HasContract(ctx context.Context, shareID uint64, templateType string) (bool, error) {
	var exists bool
	err := r.db.WithContext(ctx).Model(&domain.Contract{}).
		Select("count(1) > 0").
		Where("collaborator_share_id = ? AND template_type = ?", shareID, templateType).
		Find(&exists).Error
	return exists, err
}

func (r *RepositoryImpl) CreateContract(ctx context.Context, contract *domain.Contract) error {
	now := time.Now().UTC()
	contract.CreatedAt = now
	contract.UpdatedAt = now
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *RepositoryImpl) MarkSent(ctx context.Context, contractID uint64, docID string) error {
	return r.db.WithContext(ctx).Model(&domain.Contract{}).
		Where("id = ?", contractID).
		Updates(map[string]any{
			"esignature_doc_id": docID,
			"esignature_status": domain.StatusPending,
			"updated_at":        time.Now().UTC(),
		}).Error
}

// ApplyCompleted transitions the contract for a provider document to
// signed. Returns applied=false both when the document is unknown (the
// contract may belong to a different system) and when the contract is
// already signed, so a replayed webhook triggers no second side effect.
func (r *RepositoryImpl) ApplyCompleted(ctx context.Context, docID string, signedAt time.Time) (*domain.Contract, bool, error) {
	var contract domain.Contract
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("esignature_doc_id = ?", docID).
			First(&contract).Error
		if err != nil {
			return err
		}
		if contract.EsignatureStatus == domain.StatusSigned {
			return nil
		}

		signedAtUTC := signedAt.UTC()
		contract.EsignatureStatus = domain.StatusSigned
		contract.SignedAt = &signedAtUTC
		applied = true

		return tx.Model(&contract).
			Updates(map[string]any{
				"esignature_status": domain.StatusSigned,
				"signed_at":         signedAtUTC,
				"updated_at":        time.Now().UTC(),
			}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &contract, applied, nil
}

func (r *RepositoryImpl) ApplyDeclined(ctx context.Context, docID string) (*domain.Contract, bool, error) {
	var contract domain.Contract
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("esignature_doc_id = ?", docID).
			First(&contract).Error
		if err != nil {
			return err
		}
		if contract.EsignatureStatus == domain.StatusDeclined {
			return nil
		}

		contract.EsignatureStatus = domain.StatusDeclined
		applied = true

		return tx.Model(&contract).
			Updates(map[string]any{
				"esignature_status": domain.StatusDeclined,
				"updated_at":        time.Now().UTC(),
			}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &contract, applied, nil
}

// ApplyCanceled resets the contract to pending and detaches the provider
// document so it can be resent. Applied unconditionally, even over signed:
// the provider's cancellation event downgrades an already-signed contract
// (last write wins under unordered delivery). Known sharp edge, kept on
// purpose pending product sign-off.
func (r *RepositoryImpl) ApplyCanceled(ctx context.Context, docID string) (*domain.Contract, bool, error) {
	var contract domain.Contract
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("esignature_doc_id = ?", docID).
			First(&contract).Error
		if err != nil {
			return err
		}

		contract.EsignatureStatus = domain.StatusPending
		contract.EsignatureDocID = nil
		applied = true

		return tx.Model(&contract).
			Updates(map[string]any{
				"esignature_status": domain.StatusPending,
				"esignature_doc_id": nil,
				"updated_at":        time.Now().UTC(),
			}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &contract, applied, nil
}

func (r *RepositoryImpl) UpdateStatus(ctx context.Context, contractID uint64, status string, signedAt *time.Time) error {
	updates := map[string]any{
		"esignature_status": status,
		"updated_at":        time.Now().UTC(),
	}
	if signedAt != nil {
		utc := signedAt.UTC()
		updates["signed_at"] = utc
	}
	return r.db.WithContext(ctx).Model(&domain.Contract{}).
		Where("id = ?", contractID).
		Updates(updates).Error
}

func (r *RepositoryImpl) SaveSignedPDF(ctx context.Context, contractID uint64, pdf []byte) error {
	return r.db.WithContext(ctx).Model(&domain.Contract{}).
		Where("id = ?", contractID).
		Updates(map[string]any{
			"signed_pdf_data": pdf,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *RepositoryImpl) CreateReceipt(ctx context.Context, receipt *domain.WebhookReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}
