package split

import (
	"context"
	"errors"
	"time"

	"royalty-split-manager/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sentinel returned by repository writes when the facet lock check inside
// the transaction fails. The service maps it to the API error.
var ErrFacetLocked = errors.New("facet is locked")

type Repository interface {
	FindWork(ctx context.Context, workID uint64) (*domain.Work, error)
	ListPublishingEntityShares(ctx context.Context, workID uint64) ([]domain.PublishingEntityShare, error)
	ListCollaboratorShares(ctx context.Context, workID uint64) ([]domain.CollaboratorShare, error)
	ReplacePublishingEntityShares(ctx context.Context, workID uint64, shares []domain.PublishingEntityShare) error
	ReplaceCollaboratorFacet(ctx context.Context, workID uint64, facet string, entries []CollaboratorShareEntry) error
	SetLabelMasterShare(ctx context.Context, workID uint64, share float64) error
	LockFacet(ctx context.Context, workID uint64, facet string) (alreadyLocked bool, err error)
}

// CollaboratorShareEntry is one facet-scoped ownership assignment.
type CollaboratorShareEntry struct {
	CollaboratorID uint64
	RoleInSong     string
	Ownership      float64
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) FindWork(ctx context.Context, workID uint64) (*domain.Work, error) {
	var work domain.Work
	err := r.db.WithContext(ctx).First(&work, workID).Error
	if err != nil {
		return nil, err
	}
	return &work, nil
}

func (r *RepositoryImpl) ListPublishingEntityShares(ctx context.Context, workID uint64) ([]domain.PublishingEntityShare, error) {
	var shares []domain.PublishingEntityShare
	err := r.db.WithContext(ctx).
		Where("work_id = ?", workID).
		Order("publishing_entity_id ASC").
		Find(&shares).Error
	return shares, err
}

func (r *RepositoryImpl) ListCollaboratorShares(ctx context.Context, workID uint64) ([]domain.CollaboratorShare, error) {
	var shares []domain.CollaboratorShare
	err := r.db.WithContext(ctx).
		Where("work_id = ?", workID).
		Order("collaborator_id ASC, role_in_song ASC").
		Find(&shares).Error
	return shares, err
}

// lockWorkRow loads the work row under SELECT ... FOR UPDATE so the facet
// lock check and the dependent write are observed as one unit. A lock call
// racing an in-flight split write blocks here until the write commits.
func lockWorkRow(tx *gorm.DB, workID uint64) (*domain.Work, error) {
	var work domain.Work
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&work, workID).Error
	if err != nil {
		return nil, err
	}
	return &work, nil
}

// ReplacePublishingEntityShares atomically replaces the whole entity-share
// set for a work (delete-all-then-insert-all) and appends a journal row.
func (r *RepositoryImpl) ReplacePublishingEntityShares(ctx context.Context, workID uint64, shares []domain.PublishingEntityShare) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		work, err := lockWorkRow(tx, workID)
		if err != nil {
			return err
		}
		if work.PublishingLocked {
			return ErrFacetLocked
		}

		if err := tx.Where("work_id = ?", workID).
			Delete(&domain.PublishingEntityShare{}).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := range shares {
			shares[i].ID = 0
			shares[i].WorkID = workID
			shares[i].CreatedAt = now
			shares[i].UpdatedAt = now
		}
		if len(shares) > 0 {
			if err := tx.Create(&shares).Error; err != nil {
				return err
			}
		}

		return appendRevision(tx, workID, domain.FacetPublishing, publishingSnapshot(shares))
	})
}

// ReplaceCollaboratorFacet rewrites one facet's ownership values across the
// work's collaborator shares. Rows not listed lose their stake in that
// facet; rows left with no stake in either facet are removed.
func (r *RepositoryImpl) ReplaceCollaboratorFacet(ctx context.Context, workID uint64, facet string, entries []CollaboratorShareEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		work, err := lockWorkRow(tx, workID)
		if err != nil {
			return err
		}
		if facet == domain.FacetPublishing && work.PublishingLocked {
			return ErrFacetLocked
		}
		if facet == domain.FacetMaster && work.MasterLocked {
			return ErrFacetLocked
		}

		column := "publishing_ownership"
		if facet == domain.FacetMaster {
			column = "master_ownership"
		}

		now := time.Now().UTC()

		if err := tx.Model(&domain.CollaboratorShare{}).
			Where("work_id = ?", workID).
			Updates(map[string]any{column: nil, "updated_at": now}).Error; err != nil {
			return err
		}

		for _, entry := range entries {
			ownership := entry.Ownership
			res := tx.Model(&domain.CollaboratorShare{}).
				Where("work_id = ? AND collaborator_id = ? AND role_in_song = ?",
					workID, entry.CollaboratorID, entry.RoleInSong).
				Updates(map[string]any{column: ownership, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				share := domain.CollaboratorShare{
					WorkID:         workID,
					CollaboratorID: entry.CollaboratorID,
					RoleInSong:     entry.RoleInSong,
					CreatedAt:      now,
					UpdatedAt:      now,
				}
				if facet == domain.FacetMaster {
					share.MasterOwnership = &ownership
				} else {
					share.PublishingOwnership = &ownership
				}
				if err := tx.Create(&share).Error; err != nil {
					return err
				}
			}
		}

		if err := tx.Where("work_id = ? AND publishing_ownership IS NULL AND master_ownership IS NULL", workID).
			Delete(&domain.CollaboratorShare{}).Error; err != nil {
			return err
		}

		var current []domain.CollaboratorShare
		if err := tx.Where("work_id = ?", workID).Find(&current).Error; err != nil {
			return err
		}

		return appendRevision(tx, workID, facet, collaboratorSnapshot(current))
	})
}

func (r *RepositoryImpl) SetLabelMasterShare(ctx context.Context, workID uint64, share float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		work, err := lockWorkRow(tx, workID)
		if err != nil {
			return err
		}
		if work.MasterLocked {
			return ErrFacetLocked
		}

		if err := tx.Model(work).
			Updates(map[string]any{"label_master_share": share, "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}

		return appendRevision(tx, workID, domain.FacetMaster, labelShareSnapshot(share))
	})
}

// LockFacet sets the one-way lock flag. Locking an already-locked facet is
// a no-op success. Before the publishing facet locks, the publisher's-share
// invariant is re-validated against the current set inside the same
// transaction.
func (r *RepositoryImpl) LockFacet(ctx context.Context, workID uint64, facet string) (bool, error) {
	var alreadyLocked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		work, err := lockWorkRow(tx, workID)
		if err != nil {
			return err
		}

		column := "publishing_locked"
		if facet == domain.FacetMaster {
			column = "master_locked"
			alreadyLocked = work.MasterLocked
		} else {
			alreadyLocked = work.PublishingLocked
		}
		if alreadyLocked {
			return nil
		}

		if facet == domain.FacetPublishing {
			var shares []domain.PublishingEntityShare
			if err := tx.Where("work_id = ?", workID).Find(&shares).Error; err != nil {
				return err
			}
			total := 0.0
			for _, s := range shares {
				total += s.OwnershipPercentage
			}
			if err := validatePublisherTotal(total); err != nil {
				return err
			}
		}

		return tx.Model(work).
			Updates(map[string]any{column: true, "updated_at": time.Now().UTC()}).Error
	})
	return alreadyLocked, err
}

func appendRevision(tx *gorm.DB, workID uint64, facet string, snapshot []byte) error {
	return tx.Create(&domain.SplitRevision{
		ID:        uuid.New(),
		WorkID:    workID,
		Facet:     facet,
		Snapshot:  snapshot,
		CreatedAt: time.Now().UTC(),
	}).Error
}
