package campaignapp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/domain/shared"
	domainsync "github.com/adsync/backend/internal/domain/sync"
	"github.com/adsync/backend/internal/infrastructure/lock"
)

// ---------------------------------------------------------------------------
// In-memory fakes
// ---------------------------------------------------------------------------

type fakeCampaignRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]campaign.Campaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{byID: make(map[uuid.UUID]campaign.Campaign)}
}

func (r *fakeCampaignRepo) FindByID(_ context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, campaign.ErrCampaignNotFound
	}
	out := c
	return &out, nil
}

func (r *fakeCampaignRepo) FindByName(_ context.Context, name string) (*campaign.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.Name == name {
			out := c
			return &out, nil
		}
	}
	return nil, campaign.ErrCampaignNotFound
}

func (r *fakeCampaignRepo) FindAll(_ context.Context, _ shared.Filter) ([]campaign.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]campaign.Campaign, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCampaignRepo) Save(_ context.Context, c *campaign.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = *c
	return nil
}

func (r *fakeCampaignRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakeCampaignRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

type fakeCreativeRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]campaign.Creative
}

func newFakeCreativeRepo() *fakeCreativeRepo {
	return &fakeCreativeRepo{byID: make(map[uuid.UUID]campaign.Creative)}
}

func (r *fakeCreativeRepo) FindByID(_ context.Context, id uuid.UUID) (*campaign.Creative, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cr, ok := r.byID[id]
	if !ok {
		return nil, campaign.ErrCreativeNotFound
	}
	out := cr
	return &out, nil
}

func (r *fakeCreativeRepo) FindByCampaign(_ context.Context, campaignID uuid.UUID) ([]campaign.Creative, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []campaign.Creative
	for _, cr := range r.byID {
		if cr.CampaignID == campaignID {
			out = append(out, cr)
		}
	}
	return out, nil
}

func (r *fakeCreativeRepo) Save(_ context.Context, cr *campaign.Creative) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[cr.ID] = *cr
	return nil
}

func (r *fakeCreativeRepo) DeleteByCampaign(_ context.Context, campaignID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cr := range r.byID {
		if cr.CampaignID == campaignID {
			delete(r.byID, id)
		}
	}
	return nil
}

type fakeBindingRepo struct {
	mu       sync.Mutex
	bindings map[uuid.UUID]domainsync.Binding
}

func newFakeBindingRepo() *fakeBindingRepo {
	return &fakeBindingRepo{bindings: make(map[uuid.UUID]domainsync.Binding)}
}

func (r *fakeBindingRepo) FindByCampaignAndPlatform(_ context.Context, campaignID uuid.UUID, platform domainsync.PlatformCode) (*domainsync.Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bindings {
		if b.CampaignID == campaignID && b.Platform == platform {
			out := b
			return &out, nil
		}
	}
	return nil, domainsync.ErrBindingNotFound
}

func (r *fakeBindingRepo) FindByCampaign(_ context.Context, campaignID uuid.UUID) ([]domainsync.Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domainsync.Binding
	for _, b := range r.bindings {
		if b.CampaignID == campaignID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBindingRepo) Save(_ context.Context, b *domainsync.Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[b.ID] = *b
	return nil
}

func (r *fakeBindingRepo) DeleteByCampaign(_ context.Context, campaignID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.bindings {
		if b.CampaignID == campaignID {
			delete(r.bindings, id)
		}
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

// ---------------------------------------------------------------------------
// Test fixture
// ---------------------------------------------------------------------------

type fixture struct {
	service   *Service
	campaigns *fakeCampaignRepo
	creatives *fakeCreativeRepo
	bindings  *fakeBindingRepo
	publisher *recordingPublisher
}

func newFixture() *fixture {
	campaigns := newFakeCampaignRepo()
	creatives := newFakeCreativeRepo()
	bindings := newFakeBindingRepo()
	publisher := &recordingPublisher{}
	service := NewService(campaigns, creatives, bindings,
		lock.NewKeyedMutex(), publisher, zap.NewNop())
	return &fixture{
		service:   service,
		campaigns: campaigns,
		creatives: creatives,
		bindings:  bindings,
		publisher: publisher,
	}
}

func validCreateInput() CreateCampaignInput {
	return CreateCampaignInput{
		Name:         "Holiday Awareness Q4",
		AdvertiserID: "adv-100",
		Phase:        campaign.PhaseAwareness,
		BudgetTotal:  decimal.NewFromInt(5000),
		StartDate:    time.Now(),
		EndDate:      time.Now().Add(30 * 24 * time.Hour),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestService_Create(t *testing.T) {
	t.Run("creates draft campaign with default targeting", func(t *testing.T) {
		f := newFixture()

		c, err := f.service.Create(context.Background(), validCreateInput())

		require.NoError(t, err)
		assert.Equal(t, campaign.StatusDraft, c.Status)
		assert.Equal(t, []string{"US"}, c.Targeting.Geo)
		assert.Equal(t, "high", c.Targeting.BrandSafetyLevel)

		saved, err := f.campaigns.FindByID(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Holiday Awareness Q4", saved.Name)
		assert.Contains(t, f.publisher.eventTypes(), campaign.EventTypeCampaignCreated)
	})

	t.Run("explicit targeting overrides the default", func(t *testing.T) {
		f := newFixture()
		input := validCreateInput()
		input.Targeting = &campaign.Targeting{
			Geo:              []string{"GB"},
			BrandSafetyLevel: "medium",
		}

		c, err := f.service.Create(context.Background(), input)

		require.NoError(t, err)
		assert.Equal(t, []string{"GB"}, c.Targeting.Geo)
	})

	t.Run("rejects non-positive budget", func(t *testing.T) {
		f := newFixture()
		input := validCreateInput()
		input.BudgetTotal = decimal.Zero

		c, err := f.service.Create(context.Background(), input)

		assert.ErrorIs(t, err, campaign.ErrCampaignInvalidBudget)
		assert.Nil(t, c)
		assert.Empty(t, f.publisher.eventTypes())
	})
}

func TestService_Update(t *testing.T) {
	t.Run("updates intent fields and publishes", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)

		updated, err := f.service.Update(context.Background(), c.ID, UpdateCampaignInput{
			Name:        "Holiday Awareness Q4 v2",
			BudgetTotal: decimal.NewFromInt(8000),
			StartDate:   c.StartDate,
			EndDate:     c.EndDate,
			Targeting:   c.Targeting,
		})

		require.NoError(t, err)
		assert.Equal(t, "Holiday Awareness Q4 v2", updated.Name)
		assert.True(t, updated.Budget.Total.Equal(decimal.NewFromInt(8000)))
		assert.Contains(t, f.publisher.eventTypes(), campaign.EventTypeCampaignUpdated)
	})

	t.Run("returns not found for unknown campaign", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.Update(context.Background(), uuid.New(), UpdateCampaignInput{
			Name:        "x",
			BudgetTotal: decimal.NewFromInt(1),
		})

		assert.ErrorIs(t, err, campaign.ErrCampaignNotFound)
	})
}

func TestService_Lifecycle(t *testing.T) {
	t.Run("draft activates, pauses, resumes, completes", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)

		c, err = f.service.Activate(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusActive, c.Status)

		c, err = f.service.Pause(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusPaused, c.Status)

		c, err = f.service.Activate(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusActive, c.Status)

		c, err = f.service.Complete(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusCompleted, c.Status)
	})

	t.Run("pausing a draft fails", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)

		_, err = f.service.Pause(context.Background(), c.ID)

		assert.ErrorIs(t, err, campaign.ErrCampaignNotActive)
	})
}

func TestService_Archive(t *testing.T) {
	t.Run("archives campaign and removes creatives and bindings", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)

		cr, err := f.service.AddCreative(context.Background(), c.ID, AddCreativeInput{
			Name:   "Banner 300x250",
			Format: campaign.FormatDisplay,
		})
		require.NoError(t, err)

		b, err := domainsync.NewBinding(c.ID, domainsync.PlatformAmazonDSP, "dsp-order-1", "v1")
		require.NoError(t, err)
		require.NoError(t, f.bindings.Save(context.Background(), b))

		archived, err := f.service.Archive(context.Background(), c.ID)

		require.NoError(t, err)
		assert.Equal(t, campaign.StatusArchived, archived.Status)
		assert.Contains(t, f.publisher.eventTypes(), campaign.EventTypeCampaignDeleted)

		_, err = f.creatives.FindByID(context.Background(), cr.ID)
		assert.ErrorIs(t, err, campaign.ErrCreativeNotFound)

		bindings, err := f.bindings.FindByCampaign(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Empty(t, bindings)
	})

	t.Run("hard delete removes the campaign and its dependents", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)

		cr, err := f.service.AddCreative(context.Background(), c.ID, AddCreativeInput{
			Name:   "Banner 300x250",
			Format: campaign.FormatDisplay,
		})
		require.NoError(t, err)

		err = f.service.Delete(context.Background(), c.ID)

		require.NoError(t, err)
		assert.Contains(t, f.publisher.eventTypes(), campaign.EventTypeCampaignDeleted)

		_, err = f.campaigns.FindByID(context.Background(), c.ID)
		assert.ErrorIs(t, err, campaign.ErrCampaignNotFound)
		_, err = f.creatives.FindByID(context.Background(), cr.ID)
		assert.ErrorIs(t, err, campaign.ErrCreativeNotFound)
	})

	t.Run("hard delete is refused once spend is recorded", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)

		require.NoError(t, c.RecordSpend(decimal.NewFromInt(120)))
		require.NoError(t, f.campaigns.Save(context.Background(), c))

		err = f.service.Delete(context.Background(), c.ID)
		assert.ErrorIs(t, err, campaign.ErrCampaignHasSpend)

		// campaign survives untouched; archival remains available
		kept, err := f.campaigns.FindByID(context.Background(), c.ID)
		require.NoError(t, err)
		assert.True(t, kept.HasSpend())

		_, err = f.service.Archive(context.Background(), c.ID)
		assert.NoError(t, err)
	})

	t.Run("archiving twice fails", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)

		_, err = f.service.Archive(context.Background(), c.ID)
		require.NoError(t, err)

		_, err = f.service.Archive(context.Background(), c.ID)
		assert.ErrorIs(t, err, campaign.ErrCampaignTerminal)
	})

	t.Run("archived campaign rejects intent updates", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)
		_, err = f.service.Archive(context.Background(), c.ID)
		require.NoError(t, err)

		_, err = f.service.Update(context.Background(), c.ID, UpdateCampaignInput{
			Name:        "too late",
			BudgetTotal: decimal.NewFromInt(1),
			StartDate:   c.StartDate,
			EndDate:     c.EndDate,
		})

		assert.ErrorIs(t, err, campaign.ErrCampaignTerminal)
	})
}

func TestService_AddCreative(t *testing.T) {
	t.Run("attaches creative preserving order", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)

		first, err := f.service.AddCreative(context.Background(), c.ID, AddCreativeInput{
			Name: "Creative A", Format: campaign.FormatDisplay, Dimensions: "300x250",
		})
		require.NoError(t, err)
		second, err := f.service.AddCreative(context.Background(), c.ID, AddCreativeInput{
			Name: "Creative B", Format: campaign.FormatVideo, Dimensions: "1920x1080",
		})
		require.NoError(t, err)

		saved, err := f.campaigns.FindByID(context.Background(), c.ID)
		require.NoError(t, err)
		require.Len(t, saved.CreativeIDs, 2)
		assert.Equal(t, first.ID, saved.CreativeIDs[0])
		assert.Equal(t, second.ID, saved.CreativeIDs[1])
		assert.Equal(t, campaign.CreativeStatusUploaded, first.Status)
	})

	t.Run("rejects creative for unknown campaign", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.AddCreative(context.Background(), uuid.New(), AddCreativeInput{
			Name: "Orphan", Format: campaign.FormatDisplay,
		})

		assert.ErrorIs(t, err, campaign.ErrCampaignNotFound)
	})
}

func TestService_GetCreative(t *testing.T) {
	t.Run("rejects creative owned by another campaign", func(t *testing.T) {
		f := newFixture()
		owner, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)
		input := validCreateInput()
		input.Name = "Other Campaign"
		other, err := f.service.Create(context.Background(), input)
		require.NoError(t, err)

		cr, err := f.service.AddCreative(context.Background(), owner.ID, AddCreativeInput{
			Name: "Creative A", Format: campaign.FormatDisplay,
		})
		require.NoError(t, err)

		_, err = f.service.GetCreative(context.Background(), other.ID, cr.ID)

		assert.ErrorIs(t, err, campaign.ErrCreativeNotOwned)
	})
}

func TestService_SetCreativeStatus(t *testing.T) {
	t.Run("activating a creative publishes creative.processed", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)
		cr, err := f.service.AddCreative(context.Background(), c.ID, AddCreativeInput{
			Name: "Creative A", Format: campaign.FormatDisplay,
		})
		require.NoError(t, err)

		updated, err := f.service.SetCreativeStatus(context.Background(), c.ID, cr.ID, campaign.CreativeStatusActive)

		require.NoError(t, err)
		assert.Equal(t, campaign.CreativeStatusActive, updated.Status)
		assert.Contains(t, f.publisher.eventTypes(), campaign.EventTypeCreativeProcessed)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)
		cr, err := f.service.AddCreative(context.Background(), c.ID, AddCreativeInput{
			Name: "Creative A", Format: campaign.FormatDisplay,
		})
		require.NoError(t, err)

		_, err = f.service.SetCreativeStatus(context.Background(), c.ID, cr.ID, campaign.CreativeStatus("bogus"))

		assert.ErrorIs(t, err, campaign.ErrCreativeInvalidStatus)
	})
}

func TestService_ProcessCreative(t *testing.T) {
	snippet := `<img src="https://pixel.adsafeprotected.com/x.gif"><a href="${CLICK_URL}">x</a>`

	t.Run("activates the creative and publishes creative.processed", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)
		cr, err := f.service.AddCreative(context.Background(), c.ID, AddCreativeInput{
			Name: "Creative A", Format: campaign.FormatDisplay, Snippet: snippet,
		})
		require.NoError(t, err)

		processed, err := f.service.ProcessCreative(context.Background(), c.ID, cr.ID, campaign.ViewabilityDVOnly)

		require.NoError(t, err)
		assert.Equal(t, campaign.CreativeStatusActive, processed.Status)
		assert.NotContains(t, processed.ProcessedSnippet, "adsafeprotected")
		assert.Contains(t, processed.ProcessedSnippet, "${AMAZON_CLICK_URL}")
		assert.Contains(t, f.publisher.eventTypes(), campaign.EventTypeCreativeProcessed)

		saved, err := f.creatives.FindByID(context.Background(), cr.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.CreativeStatusActive, saved.Status)
	})

	t.Run("persists failed status when the snippet is missing", func(t *testing.T) {
		f := newFixture()
		c, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)
		cr, err := f.service.AddCreative(context.Background(), c.ID, AddCreativeInput{
			Name: "Creative A", Format: campaign.FormatDisplay,
		})
		require.NoError(t, err)

		_, err = f.service.ProcessCreative(context.Background(), c.ID, cr.ID, campaign.ViewabilityDVOnly)

		assert.ErrorIs(t, err, campaign.ErrSnippetEmpty)
		saved, findErr := f.creatives.FindByID(context.Background(), cr.ID)
		require.NoError(t, findErr)
		assert.Equal(t, campaign.CreativeStatusFailed, saved.Status)
		require.NotNil(t, saved.Processing)
		assert.NotEmpty(t, saved.Processing.Error)
		assert.NotContains(t, f.publisher.eventTypes(), campaign.EventTypeCreativeProcessed)
	})

	t.Run("rejects creative owned by another campaign", func(t *testing.T) {
		f := newFixture()
		owner, err := f.service.Create(context.Background(), validCreateInput())
		require.NoError(t, err)
		input := validCreateInput()
		input.Name = "Other Campaign"
		other, err := f.service.Create(context.Background(), input)
		require.NoError(t, err)
		cr, err := f.service.AddCreative(context.Background(), owner.ID, AddCreativeInput{
			Name: "Creative A", Format: campaign.FormatDisplay, Snippet: snippet,
		})
		require.NoError(t, err)

		_, err = f.service.ProcessCreative(context.Background(), other.ID, cr.ID, campaign.ViewabilityDVOnly)

		assert.ErrorIs(t, err, campaign.ErrCreativeNotOwned)
	})
}
