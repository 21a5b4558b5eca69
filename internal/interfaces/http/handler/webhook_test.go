package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	webhookapp "github.com/adsync/backend/internal/application/webhook"
	"github.com/adsync/backend/internal/domain/webhook"
	"github.com/adsync/backend/internal/infrastructure/notify"
	"github.com/adsync/backend/internal/interfaces/http/dto"
)

type stubWebhookRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]webhook.Event
}

func newStubWebhookRepo() *stubWebhookRepo {
	return &stubWebhookRepo{byID: make(map[uuid.UUID]webhook.Event)}
}

func (r *stubWebhookRepo) FindByID(_ context.Context, id uuid.UUID) (*webhook.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, webhook.ErrEventNotFound
	}
	out := e
	return &out, nil
}

func (r *stubWebhookRepo) FindByKind(_ context.Context, kind webhook.Kind, limit int) ([]webhook.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []webhook.Event
	for _, e := range r.byID {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubWebhookRepo) Save(_ context.Context, e *webhook.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[e.ID] = *e
	return nil
}

type webhookFixture struct {
	events *stubWebhookRepo
	router *gin.Engine
}

func setupWebhookHandler(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	events := newStubWebhookRepo()
	emitter := webhookapp.NewEmitter(events, notify.NewLoggingDeliverer(zap.NewNop()), zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = emitter.Stop(ctx)
	})

	h := NewWebhookHandler(emitter)

	router := gin.New()
	router.GET("/webhooks/events", h.ListRecent)
	router.GET("/webhooks/events/:id", h.GetByID)

	return &webhookFixture{events: events, router: router}
}

func (f *webhookFixture) seedEvent(t *testing.T, kind webhook.Kind) *webhook.Event {
	t.Helper()
	e, err := webhook.NewEvent(uuid.New(), kind, time.Now(),
		map[string]interface{}{"campaign_id": uuid.NewString()})
	require.NoError(t, err)
	require.NoError(t, f.events.Save(context.Background(), e))
	return e
}

func TestWebhookHandler_ListRecent(t *testing.T) {
	f := setupWebhookHandler(t)
	f.seedEvent(t, webhook.KindCampaignCreated)
	f.seedEvent(t, webhook.KindCampaignCreated)
	f.seedEvent(t, webhook.KindSheetGenerated)

	w := doJSON(f.router, "GET", "/webhooks/events?kind=campaign.created", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestWebhookHandler_ListRecent_MissingKind(t *testing.T) {
	f := setupWebhookHandler(t)

	w := doJSON(f.router, "GET", "/webhooks/events", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_ListRecent_UnknownKind(t *testing.T) {
	f := setupWebhookHandler(t)

	w := doJSON(f.router, "GET", "/webhooks/events?kind=campaign.exploded", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}

func TestWebhookHandler_ListRecent_InvalidLimit(t *testing.T) {
	f := setupWebhookHandler(t)

	w := doJSON(f.router, "GET", "/webhooks/events?kind=campaign.created&limit=zero", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_GetByID(t *testing.T) {
	f := setupWebhookHandler(t)
	e := f.seedEvent(t, webhook.KindSyncCompleted)

	w := doJSON(f.router, "GET", "/webhooks/events/"+e.ID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "integration.sync.completed", data["kind"])
}

func TestWebhookHandler_GetByID_NotFound(t *testing.T) {
	f := setupWebhookHandler(t)

	w := doJSON(f.router, "GET", "/webhooks/events/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
