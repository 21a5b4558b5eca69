package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adsync/backend/internal/domain/shared"
	domainsync "github.com/adsync/backend/internal/domain/sync"
	"github.com/adsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements sync.JobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// FindByID finds a job by its ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*domainsync.Job, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainsync.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindActiveByCampaign returns the non-terminal job for a campaign.
// At most one exists at a time; admission enforces that.
func (r *GormSyncJobRepository) FindActiveByCampaign(ctx context.Context, campaignID uuid.UUID) (*domainsync.Job, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND state IN ?", campaignID,
			[]string{domainsync.JobStatePending.String(), domainsync.JobStateRunning.String()}).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainsync.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByCampaign returns the job history for a campaign, newest first
func (r *GormSyncJobRepository) FindByCampaign(ctx context.Context, campaignID uuid.UUID, filter shared.Filter) ([]domainsync.Job, error) {
	var dbModels []models.SyncJobModel
	query := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("campaign_id = ?", campaignID)

	for key, value := range filter.Filters {
		switch key {
		case "state":
			query = query.Where("state = ?", value)
		case "direction":
			query = query.Where("direction = ?", value)
		case "platform":
			query = query.Where("platform = ?", value)
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	if err := query.Find(&dbModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]domainsync.Job, len(dbModels))
	for i := range dbModels {
		j, err := dbModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		jobs[i] = *j
	}
	return jobs, nil
}

// Save creates or updates a job
func (r *GormSyncJobRepository) Save(ctx context.Context, j *domainsync.Job) error {
	model := models.SyncJobModelFromDomain(j)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormSyncJobRepository implements sync.JobRepository
var _ domainsync.JobRepository = (*GormSyncJobRepository)(nil)

// GormBindingRepository implements sync.BindingRepository using GORM
type GormBindingRepository struct {
	db *gorm.DB
}

// NewGormBindingRepository creates a new GormBindingRepository
func NewGormBindingRepository(db *gorm.DB) *GormBindingRepository {
	return &GormBindingRepository{db: db}
}

// FindByCampaignAndPlatform finds the binding for (campaign, platform)
func (r *GormBindingRepository) FindByCampaignAndPlatform(ctx context.Context, campaignID uuid.UUID, platform domainsync.PlatformCode) (*domainsync.Binding, error) {
	var model models.BindingModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND platform = ?", campaignID, platform.String()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainsync.ErrBindingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCampaign returns all bindings for a campaign
func (r *GormBindingRepository) FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domainsync.Binding, error) {
	var dbModels []models.BindingModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("platform ASC").
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	bindings := make([]domainsync.Binding, len(dbModels))
	for i := range dbModels {
		bindings[i] = *dbModels[i].ToDomain()
	}
	return bindings, nil
}

// Save creates or updates a binding
func (r *GormBindingRepository) Save(ctx context.Context, b *domainsync.Binding) error {
	model := models.BindingModelFromDomain(b)
	return r.db.WithContext(ctx).Save(model).Error
}

// DeleteByCampaign removes all bindings for a campaign
func (r *GormBindingRepository) DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.BindingModel{}, "campaign_id = ?", campaignID).Error
}

// Ensure GormBindingRepository implements sync.BindingRepository
var _ domainsync.BindingRepository = (*GormBindingRepository)(nil)
