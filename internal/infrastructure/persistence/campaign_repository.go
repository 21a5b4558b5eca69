package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/domain/shared"
	"github.com/adsync/backend/internal/infrastructure/persistence/models"
)

// GormCampaignRepository implements campaign.Repository using GORM
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewGormCampaignRepository creates a new GormCampaignRepository
func NewGormCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// FindByID finds a campaign by its ID
func (r *GormCampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	var model models.CampaignModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaign.ErrCampaignNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByName finds a campaign by its exact name
func (r *GormCampaignRepository) FindByName(ctx context.Context, name string) (*campaign.Campaign, error) {
	var model models.CampaignModel
	if err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaign.ErrCampaignNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll finds campaigns matching the filter
func (r *GormCampaignRepository) FindAll(ctx context.Context, filter shared.Filter) ([]campaign.Campaign, error) {
	var dbModels []models.CampaignModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CampaignModel{}), filter)

	if err := query.Find(&dbModels).Error; err != nil {
		return nil, err
	}

	campaigns := make([]campaign.Campaign, len(dbModels))
	for i := range dbModels {
		c, err := dbModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		campaigns[i] = *c
	}
	return campaigns, nil
}

// Save creates or updates a campaign
func (r *GormCampaignRepository) Save(ctx context.Context, c *campaign.Campaign) error {
	model := models.CampaignModelFromDomain(c)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a campaign row
func (r *GormCampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CampaignModel{}, "id = ?", id).Error
}

// Count counts campaigns matching the filter
func (r *GormCampaignRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.CampaignModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormCampaignRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	// Apply pagination
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering
	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		// Default ordering
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormCampaignRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	// Apply search
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ?", searchPattern)
	}

	// Apply additional filters
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "phase":
			query = query.Where("phase = ?", value)
		case "advertiser_id":
			query = query.Where("advertiser_id = ?", value)
		case "over_delivered":
			query = query.Where("over_delivered = ?", value)
		}
	}

	return query
}

// Ensure GormCampaignRepository implements campaign.Repository
var _ campaign.Repository = (*GormCampaignRepository)(nil)

// GormCreativeRepository implements campaign.CreativeRepository using GORM
type GormCreativeRepository struct {
	db *gorm.DB
}

// NewGormCreativeRepository creates a new GormCreativeRepository
func NewGormCreativeRepository(db *gorm.DB) *GormCreativeRepository {
	return &GormCreativeRepository{db: db}
}

// FindByID finds a creative by its ID
func (r *GormCreativeRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.Creative, error) {
	var model models.CreativeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaign.ErrCreativeNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByCampaign returns all creatives owned by a campaign, ordered by
// creative ID so iteration order is stable across reads
func (r *GormCreativeRepository) FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]campaign.Creative, error) {
	var dbModels []models.CreativeModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("id ASC").
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	creatives := make([]campaign.Creative, len(dbModels))
	for i := range dbModels {
		cr, err := dbModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		creatives[i] = *cr
	}
	return creatives, nil
}

// Save creates or updates a creative
func (r *GormCreativeRepository) Save(ctx context.Context, cr *campaign.Creative) error {
	model := models.CreativeModelFromDomain(cr)
	return r.db.WithContext(ctx).Save(model).Error
}

// DeleteByCampaign removes all creatives owned by a campaign
func (r *GormCreativeRepository) DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CreativeModel{}, "campaign_id = ?", campaignID).Error
}

// Ensure GormCreativeRepository implements campaign.CreativeRepository
var _ campaign.CreativeRepository = (*GormCreativeRepository)(nil)
