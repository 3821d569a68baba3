package split

import (
	"context"
	"net/http"
	"testing"

	"royalty-split-manager/internal/domain"
	apiError "royalty-split-manager/internal/errors"
	"royalty-split-manager/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindWork(ctx context.Context, workID uint64) (*domain.Work, error) {
	args := m.Called(ctx, workID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Work), args.Error(1)
}

func (m *MockRepository) ListPublishingEntityShares(ctx context.Context, workID uint64) ([]domain.PublishingEntityShare, error) {
	args := m.Called(ctx, workID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PublishingEntityShare), args.Error(1)
}

func (m *MockRepository) ListCollaboratorShares(ctx context.Context, workID uint64) ([]domain.CollaboratorShare, error) {
	args := m.Called(ctx, workID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CollaboratorShare), args.Error(1)
}

func (m *MockRepository) ReplacePublishingEntityShares(ctx context.Context, workID uint64, shares []domain.PublishingEntityShare) error {
	args := m.Called(ctx, workID, shares)
	return args.Error(0)
}

func (m *MockRepository) ReplaceCollaboratorFacet(ctx context.Context, workID uint64, facet string, entries []CollaboratorShareEntry) error {
	args := m.Called(ctx, workID, facet, entries)
	return args.Error(0)
}

func (m *MockRepository) SetLabelMasterShare(ctx context.Context, workID uint64, share float64) error {
	args := m.Called(ctx, workID, share)
	return args.Error(0)
}

func (m *MockRepository) LockFacet(ctx context.Context, workID uint64, facet string) (bool, error) {
	args := m.Called(ctx, workID, facet)
	return args.Bool(0), args.Error(1)
}

func newTestService(repo Repository) Service {
	return NewService(repo, redis.NewDisabledCache())
}

func TestSetPublishingEntities_Success(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	work := &domain.Work{ID: 1, Title: "Midnight Run"}
	stored := []domain.PublishingEntityShare{
		{WorkID: 1, PublishingEntityID: 10, OwnershipPercentage: 0.3},
		{WorkID: 1, PublishingEntityID: 11, OwnershipPercentage: 0.2},
	}

	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(work, nil)
	mockRepo.On("ReplacePublishingEntityShares", mock.Anything, uint64(1), mock.Anything).Return(nil)
	mockRepo.On("ListPublishingEntityShares", mock.Anything, uint64(1)).Return(stored, nil)

	shares, err := service.SetPublishingEntities(context.Background(), 1, []PublishingEntityInput{
		{PublishingEntityID: 10, Percentage: 0.3},
		{PublishingEntityID: 11, Percentage: 0.2},
	})

	assert.NoError(t, err)
	assert.Equal(t, stored, shares)
	mockRepo.AssertExpectations(t)
}

func TestSetPublishingEntities_SumOutsideTolerance(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(&domain.Work{ID: 1}, nil)

	// 45% total, must be 50%
	_, err := service.SetPublishingEntities(context.Background(), 1, []PublishingEntityInput{
		{PublishingEntityID: 10, Percentage: 0.25},
		{PublishingEntityID: 11, Percentage: 0.20},
	})

	assert.Error(t, err)
	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Message, "45.00%")
	mockRepo.AssertNotCalled(t, "ReplacePublishingEntityShares", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetPublishingEntities_WithinTolerance(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(&domain.Work{ID: 1}, nil)
	mockRepo.On("ReplacePublishingEntityShares", mock.Anything, uint64(1), mock.Anything).Return(nil)
	mockRepo.On("ListPublishingEntityShares", mock.Anything, uint64(1)).Return([]domain.PublishingEntityShare{}, nil)

	// 0.49995 deviates by 0.00005, inside the 0.0001 tolerance
	_, err := service.SetPublishingEntities(context.Background(), 1, []PublishingEntityInput{
		{PublishingEntityID: 10, Percentage: 0.49995},
	})

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSetPublishingEntities_DuplicateEntity(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(&domain.Work{ID: 1}, nil)

	_, err := service.SetPublishingEntities(context.Background(), 1, []PublishingEntityInput{
		{PublishingEntityID: 10, Percentage: 0.25},
		{PublishingEntityID: 10, Percentage: 0.25},
	})

	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	mockRepo.AssertNotCalled(t, "ReplacePublishingEntityShares", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetPublishingEntities_LockedFacet(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("FindWork", mock.Anything, uint64(1)).
		Return(&domain.Work{ID: 1, PublishingLocked: true}, nil)

	// A valid set is still rejected once the facet is locked
	_, err := service.SetPublishingEntities(context.Background(), 1, []PublishingEntityInput{
		{PublishingEntityID: 10, Percentage: 0.5},
	})

	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusLocked, apiErr.Status)
	mockRepo.AssertNotCalled(t, "ReplacePublishingEntityShares", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetPublishingEntities_LockRaceDetectedInRepository(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	// The pre-check passes but the transactional re-check loses the race
	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(&domain.Work{ID: 1}, nil)
	mockRepo.On("ReplacePublishingEntityShares", mock.Anything, uint64(1), mock.Anything).
		Return(ErrFacetLocked)

	_, err := service.SetPublishingEntities(context.Background(), 1, []PublishingEntityInput{
		{PublishingEntityID: 10, Percentage: 0.5},
	})

	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusLocked, apiErr.Status)
}

func TestSetCollaboratorShares_WriterTotalValidated(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(&domain.Work{ID: 1}, nil)

	err := service.SetCollaboratorShares(context.Background(), 1, domain.FacetPublishing, []CollaboratorShareEntry{
		{CollaboratorID: 5, RoleInSong: domain.RoleWriter, Ownership: 0.30},
		{CollaboratorID: 6, RoleInSong: domain.RoleWriter, Ownership: 0.30},
	})

	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Message, "60.00%")
	mockRepo.AssertNotCalled(t, "ReplaceCollaboratorFacet", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetCollaboratorShares_MasterFacetHasNoSumRule(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(&domain.Work{ID: 1}, nil)
	mockRepo.On("ReplaceCollaboratorFacet", mock.Anything, uint64(1), domain.FacetMaster, mock.Anything).Return(nil)

	err := service.SetCollaboratorShares(context.Background(), 1, domain.FacetMaster, []CollaboratorShareEntry{
		{CollaboratorID: 5, RoleInSong: domain.RoleProducer, Ownership: 0.2},
		{CollaboratorID: 6, RoleInSong: domain.RoleArtist, Ownership: 0.3},
	})

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSetCollaboratorShares_UnknownRole(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(&domain.Work{ID: 1}, nil)

	err := service.SetCollaboratorShares(context.Background(), 1, domain.FacetMaster, []CollaboratorShareEntry{
		{CollaboratorID: 5, RoleInSong: "roadie", Ownership: 0.2},
	})

	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
}

func TestSetLabelMasterShare_Locked(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(&domain.Work{ID: 1, MasterLocked: true}, nil)
	mockRepo.On("SetLabelMasterShare", mock.Anything, uint64(1), 0.2).Return(ErrFacetLocked)

	err := service.SetLabelMasterShare(context.Background(), 1, 0.2)

	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusLocked, apiErr.Status)
}

func TestSetLabelMasterShare_OutOfRange(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	err := service.SetLabelMasterShare(context.Background(), 1, 1.5)

	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	mockRepo.AssertNotCalled(t, "SetLabelMasterShare", mock.Anything, mock.Anything, mock.Anything)
}

func TestLock_Idempotent(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	// Locking an already-locked facet is a no-op success
	mockRepo.On("LockFacet", mock.Anything, uint64(1), domain.FacetPublishing).Return(true, nil)

	err := service.Lock(context.Background(), 1, domain.FacetPublishing)
	assert.NoError(t, err)
}

func TestLock_UnknownFacet(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	err := service.Lock(context.Background(), 1, "performance")

	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	mockRepo.AssertNotCalled(t, "LockFacet", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSplits_NotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("FindWork", mock.Anything, uint64(9)).Return(nil, gorm.ErrRecordNotFound)

	_, err := service.GetSplits(context.Background(), 9)

	var apiErr *apiError.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestGetSplits_ReturnsCurrentSets(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	work := &domain.Work{ID: 1, Title: "Midnight Run"}
	entityShares := []domain.PublishingEntityShare{
		{WorkID: 1, PublishingEntityID: 10, OwnershipPercentage: 0.5},
	}
	collabShares := []domain.CollaboratorShare{
		{WorkID: 1, CollaboratorID: 5, RoleInSong: domain.RoleWriter},
	}

	mockRepo.On("FindWork", mock.Anything, uint64(1)).Return(work, nil)
	mockRepo.On("ListPublishingEntityShares", mock.Anything, uint64(1)).Return(entityShares, nil)
	mockRepo.On("ListCollaboratorShares", mock.Anything, uint64(1)).Return(collabShares, nil)

	result, err := service.GetSplits(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, *work, result.Work)
	assert.Equal(t, entityShares, result.PublishingEntityShares)
	assert.Equal(t, collabShares, result.CollaboratorShares)
}
