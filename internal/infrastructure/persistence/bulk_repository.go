package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adsync/backend/internal/domain/bulk"
	"github.com/adsync/backend/internal/domain/shared"
	"github.com/adsync/backend/internal/infrastructure/persistence/models"
)

// GormBulkOperationRepository implements bulk.Repository using GORM
type GormBulkOperationRepository struct {
	db *gorm.DB
}

// NewGormBulkOperationRepository creates a new GormBulkOperationRepository
func NewGormBulkOperationRepository(db *gorm.DB) *GormBulkOperationRepository {
	return &GormBulkOperationRepository{db: db}
}

// FindByID finds a bulk operation by its ID
func (r *GormBulkOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.Operation, error) {
	var model models.BulkOperationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bulk.ErrOperationNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll returns bulk operations matching the filter, newest first
func (r *GormBulkOperationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]bulk.Operation, error) {
	var dbModels []models.BulkOperationModel
	query := r.db.WithContext(ctx).Model(&models.BulkOperationModel{})

	for key, value := range filter.Filters {
		switch key {
		case "direction":
			query = query.Where("direction = ?", value)
		case "state":
			query = query.Where("state = ?", value)
		case "validate_only":
			query = query.Where("validate_only = ?", value)
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

	operations := make([]bulk.Operation, len(dbModels))
	for i := range dbModels {
		o, err := dbModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		operations[i] = *o
	}
	return operations, nil
}

// Save creates or updates a bulk operation
func (r *GormBulkOperationRepository) Save(ctx context.Context, o *bulk.Operation) error {
	model := models.BulkOperationModelFromDomain(o)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormBulkOperationRepository implements bulk.Repository
var _ bulk.Repository = (*GormBulkOperationRepository)(nil)
