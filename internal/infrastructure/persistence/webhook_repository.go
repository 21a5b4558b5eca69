package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adsync/backend/internal/domain/webhook"
	"github.com/adsync/backend/internal/infrastructure/persistence/models"
)

// GormWebhookEventRepository implements webhook.Repository using GORM.
// Events are append-only; Save only ever inserts.
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// FindByID finds a webhook event by its ID
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*webhook.Event, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, webhook.ErrEventNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByKind returns recent events of one kind, newest first
func (r *GormWebhookEventRepository) FindByKind(ctx context.Context, kind webhook.Kind, limit int) ([]webhook.Event, error) {
	if limit <= 0 {
		limit = 20
	}

	var dbModels []models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind.String()).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	events := make([]webhook.Event, len(dbModels))
	for i := range dbModels {
		e, err := dbModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		events[i] = *e
	}
	return events, nil
}

// Save persists a webhook event. Create is deliberate: events are immutable
// and the unique source_event_id index rejects duplicates.
func (r *GormWebhookEventRepository) Save(ctx context.Context, e *webhook.Event) error {
	model := models.WebhookEventModelFromDomain(e)
	return r.db.WithContext(ctx).Create(model).Error
}

// Ensure GormWebhookEventRepository implements webhook.Repository
var _ webhook.Repository = (*GormWebhookEventRepository)(nil)
