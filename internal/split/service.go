package split

import (
	"context"
	defError "errors"
	"fmt"
	"time"

	"royalty-split-manager/internal/domain"
	"royalty-split-manager/internal/errors"
	"royalty-split-manager/redis"

	"gorm.io/gorm"
)

type Service interface {
	SetPublishingEntities(ctx context.Context, workID uint64, entries []PublishingEntityInput) ([]domain.PublishingEntityShare, error)
	SetCollaboratorShares(ctx context.Context, workID uint64, facet string, entries []CollaboratorShareEntry) error
	SetLabelMasterShare(ctx context.Context, workID uint64, share float64) error
	Lock(ctx context.Context, workID uint64, facet string) error
	GetSplits(ctx context.Context, workID uint64) (*SplitsResponse, error)
}

// PublishingEntityInput carries one entity's slice of the publisher's half,
// already converted to a 0..1 fraction.
type PublishingEntityInput struct {
	PublishingEntityID uint64
	Percentage         float64
}

type DefaultService struct {
	repository Repository
	cache      *redis.Cache
}

func NewService(repository Repository, cache *redis.Cache) Service {
	return &DefaultService{repository: repository, cache: cache}
}

func (s *DefaultService) SetPublishingEntities(ctx context.Context, workID uint64, entries []PublishingEntityInput) ([]domain.PublishingEntityShare, error) {
	work, err := s.repository.FindWork(ctx, workID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Work not found", err)
		}
		return nil, err
	}
	if work.PublishingLocked {
		return nil, errors.Locked(domain.FacetPublishing)
	}

	seen := make(map[uint64]bool, len(entries))
	total := 0.0
	shares := make([]domain.PublishingEntityShare, 0, len(entries))
	for _, entry := range entries {
		if seen[entry.PublishingEntityID] {
			return nil, errors.Validation(
				fmt.Sprintf("Publishing entity %d listed more than once", entry.PublishingEntityID),
				nil,
			)
		}
		seen[entry.PublishingEntityID] = true

		if err := validateFraction("Ownership percentage", entry.Percentage); err != nil {
			return nil, err
		}
		total += entry.Percentage
		shares = append(shares, domain.PublishingEntityShare{
			PublishingEntityID:  entry.PublishingEntityID,
			OwnershipPercentage: entry.Percentage,
		})
	}
	if err := validatePublisherTotal(total); err != nil {
		return nil, err
	}

	// The repository re-checks the lock under FOR UPDATE so a concurrent
	// lock cannot race this write undetected.
	if err := s.repository.ReplacePublishingEntityShares(ctx, workID, shares); err != nil {
		if defError.Is(err, ErrFacetLocked) {
			return nil, errors.Locked(domain.FacetPublishing)
		}
		return nil, err
	}

	s.bumpSplitsVersion(ctx, workID)

	return s.repository.ListPublishingEntityShares(ctx, workID)
}

func (s *DefaultService) SetCollaboratorShares(ctx context.Context, workID uint64, facet string, entries []CollaboratorShareEntry) error {
	if facet != domain.FacetPublishing && facet != domain.FacetMaster {
		return errors.Validation(fmt.Sprintf("Unknown facet %q", facet), nil)
	}

	work, err := s.repository.FindWork(ctx, workID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Work not found", err)
		}
		return err
	}
	if facet == domain.FacetPublishing && work.PublishingLocked {
		return errors.Locked(domain.FacetPublishing)
	}
	if facet == domain.FacetMaster && work.MasterLocked {
		return errors.Locked(domain.FacetMaster)
	}

	type key struct {
		collaborator uint64
		role         string
	}
	seen := make(map[key]bool, len(entries))
	total := 0.0
	for _, entry := range entries {
		if !validRole(entry.RoleInSong) {
			return errors.Validation(fmt.Sprintf("Unknown role %q", entry.RoleInSong), nil)
		}
		k := key{entry.CollaboratorID, entry.RoleInSong}
		if seen[k] {
			return errors.Validation(
				fmt.Sprintf("Collaborator %d listed more than once as %s", entry.CollaboratorID, entry.RoleInSong),
				nil,
			)
		}
		seen[k] = true
		if err := validateFraction("Ownership", entry.Ownership); err != nil {
			return err
		}
		total += entry.Ownership
	}

	// The writer's half mirrors the publisher's 50%; the master facet has
	// no sum convention (label share coexists without complementing it).
	if facet == domain.FacetPublishing {
		if err := validateWriterTotal(total); err != nil {
			return err
		}
	}

	if err := s.repository.ReplaceCollaboratorFacet(ctx, workID, facet, entries); err != nil {
		if defError.Is(err, ErrFacetLocked) {
			return errors.Locked(facet)
		}
		return err
	}

	s.bumpSplitsVersion(ctx, workID)
	return nil
}

func (s *DefaultService) SetLabelMasterShare(ctx context.Context, workID uint64, share float64) error {
	if err := validateFraction("Label master share", share); err != nil {
		return err
	}

	if _, err := s.repository.FindWork(ctx, workID); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Work not found", err)
		}
		return err
	}

	if err := s.repository.SetLabelMasterShare(ctx, workID, share); err != nil {
		if defError.Is(err, ErrFacetLocked) {
			return errors.Locked(domain.FacetMaster)
		}
		return err
	}

	s.bumpSplitsVersion(ctx, workID)
	return nil
}

// Lock finalizes a facet. Idempotent; there is no unlock.
func (s *DefaultService) Lock(ctx context.Context, workID uint64, facet string) error {
	if facet != domain.FacetPublishing && facet != domain.FacetMaster {
		return errors.Validation(fmt.Sprintf("Unknown facet %q", facet), nil)
	}

	_, err := s.repository.LockFacet(ctx, workID, facet)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Work not found", err)
		}
		return err
	}

	s.bumpSplitsVersion(ctx, workID)
	return nil
}

type SplitsResponse struct {
	Work                   domain.Work                    `json:"work"`
	PublishingEntityShares []domain.PublishingEntityShare `json:"publishing_entity_shares"`
	CollaboratorShares     []domain.CollaboratorShare     `json:"collaborator_shares"`
}

func (s *DefaultService) GetSplits(ctx context.Context, workID uint64) (*SplitsResponse, error) {
	versionKey := fmt.Sprintf("work:%d:splits:version", workID)
	v := s.cache.GetVersion(ctx, versionKey)
	cacheKey := fmt.Sprintf("splits:w:%d:v:%d", workID, v)

	var result SplitsResponse
	found, _ := s.cache.Get(ctx, cacheKey, &result)
	if found {
		return &result, nil
	}

	work, err := s.repository.FindWork(ctx, workID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Work not found", err)
		}
		return nil, err
	}

	entityShares, err := s.repository.ListPublishingEntityShares(ctx, workID)
	if err != nil {
		return nil, err
	}
	collabShares, err := s.repository.ListCollaboratorShares(ctx, workID)
	if err != nil {
		return nil, err
	}

	result = SplitsResponse{
		Work:                   *work,
		PublishingEntityShares: entityShares,
		CollaboratorShares:     collabShares,
	}
	go s.cache.Set(context.Background(), cacheKey, result, 24*time.Hour)

	return &result, nil
}

func (s *DefaultService) bumpSplitsVersion(ctx context.Context, workID uint64) {
	versionKey := fmt.Sprintf("work:%d:splits:version", workID)
	s.cache.IncrementVersion(ctx, versionKey)
}

func validRole(role string) bool {
	switch role {
	case domain.RoleWriter, domain.RoleArtist, domain.RoleMusician, domain.RoleProducer, domain.RoleLabel:
		return true
	}
	return false
}
