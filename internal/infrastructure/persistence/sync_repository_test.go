package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adsync/backend/internal/domain/shared"
	domainsync "github.com/adsync/backend/internal/domain/sync"
)

func syncJobColumns() []string {
	return []string{
		"id", "created_at", "updated_at", "version",
		"campaign_id", "platform", "direction", "state",
		"scope", "items", "reason", "message", "started_at", "completed_at",
	}
}

func TestGormSyncJobRepository_FindByID(t *testing.T) {
	t.Run("finds job with item outcome log", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSyncJobRepository(gormDB)

		jobID := uuid.New()
		campaignID := uuid.New()
		creativeID := uuid.New()
		now := time.Now()

		itemsJSON := `[{"kind":"campaign","state":"succeeded","attempts":1},` +
			`{"kind":"creative","creative_id":"` + creativeID.String() + `","state":"failed","reason":"TRANSIENT_REMOTE_ERROR","message":"HTTP 503","attempts":3}]`

		rows := sqlmock.NewRows(syncJobColumns()).
			AddRow(jobID, now, now, 5,
				campaignID, "AMAZON_DSP", "push", "partial",
				`{"creatives":true,"targeting":false,"budget":false}`, itemsJSON,
				"TRANSIENT_REMOTE_ERROR", "", &now, &now)

		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(jobID, 1).
			WillReturnRows(rows)

		j, err := repo.FindByID(context.Background(), jobID)

		assert.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, jobID, j.ID)
		assert.Equal(t, domainsync.PlatformAmazonDSP, j.Platform)
		assert.Equal(t, domainsync.JobStatePartial, j.State)
		assert.True(t, j.Scope.Creatives)
		require.Len(t, j.Items, 2)
		assert.Equal(t, domainsync.ItemCampaign, j.Items[0].Kind)
		assert.Equal(t, domainsync.ItemStateSucceeded, j.Items[0].State)
		assert.Equal(t, creativeID, j.Items[1].CreativeID)
		assert.Equal(t, 3, j.Items[1].Attempts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrJobNotFound for non-existent job", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSyncJobRepository(gormDB)

		jobID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(jobID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		j, err := repo.FindByID(context.Background(), jobID)

		assert.Error(t, err)
		assert.Nil(t, j)
		assert.Equal(t, domainsync.ErrJobNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces corrupted item log", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSyncJobRepository(gormDB)

		jobID := uuid.New()
		campaignID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(syncJobColumns()).
			AddRow(jobID, now, now, 1,
				campaignID, "AMAZON_DSP", "push", "partial",
				`{"creatives":true}`, `[{"kind":`, "", "", &now, &now)

		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(jobID, 1).
			WillReturnRows(rows)

		j, err := repo.FindByID(context.Background(), jobID)

		assert.Error(t, err)
		assert.Nil(t, j)
		assert.Contains(t, err.Error(), "decode items")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSyncJobRepository_FindActiveByCampaign(t *testing.T) {
	t.Run("finds the in-flight job", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSyncJobRepository(gormDB)

		jobID := uuid.New()
		campaignID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(syncJobColumns()).
			AddRow(jobID, now, now, 2,
				campaignID, "AMAZON_DSP", "push", "running",
				`{"creatives":true,"targeting":true,"budget":true}`, `[]`,
				"", "", &now, nil)

		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE campaign_id = \$1 AND state IN \(\$2,\$3\)`).
			WithArgs(campaignID, "pending", "running", 1).
			WillReturnRows(rows)

		j, err := repo.FindActiveByCampaign(context.Background(), campaignID)

		assert.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, domainsync.JobStateRunning, j.State)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrJobNotFound when nothing is in flight", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSyncJobRepository(gormDB)

		campaignID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE campaign_id = \$1 AND state IN \(\$2,\$3\)`).
			WithArgs(campaignID, "pending", "running", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		j, err := repo.FindActiveByCampaign(context.Background(), campaignID)

		assert.Error(t, err)
		assert.Nil(t, j)
		assert.Equal(t, domainsync.ErrJobNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSyncJobRepository_FindByCampaign(t *testing.T) {
	t.Run("returns history newest first by default", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSyncJobRepository(gormDB)

		campaignID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(syncJobColumns()).
			AddRow(uuid.New(), now, now, 4, campaignID, "AMAZON_DSP", "push", "succeeded",
				`{"creatives":true,"targeting":false,"budget":false}`, `[]`, "", "", &now, &now).
			AddRow(uuid.New(), now.Add(-time.Hour), now.Add(-time.Hour), 4, campaignID, "AMAZON_DSP", "pull", "failed",
				`{}`, `[]`, "AUTH_FAILED", "", &now, &now)

		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE campaign_id = \$1 ORDER BY created_at DESC`).
			WillReturnRows(rows)

		jobs, err := repo.FindByCampaign(context.Background(), campaignID, shared.Filter{Page: 1, PageSize: 10})

		assert.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, domainsync.JobStateSucceeded, jobs[0].State)
		assert.Equal(t, domainsync.DirectionPull, jobs[1].Direction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func bindingColumns() []string {
	return []string{
		"id", "created_at", "updated_at",
		"campaign_id", "platform", "remote_id", "remote_version", "last_synced_at",
	}
}

func TestGormBindingRepository_FindByCampaignAndPlatform(t *testing.T) {
	t.Run("finds existing binding", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormBindingRepository(gormDB)

		bindingID := uuid.New()
		campaignID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(bindingColumns()).
			AddRow(bindingID, now, now, campaignID, "AMAZON_DSP", "dsp-order-8821", "v17", &now)

		mock.ExpectQuery(`SELECT \* FROM "platform_bindings" WHERE campaign_id = \$1 AND platform = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(campaignID, "AMAZON_DSP", 1).
			WillReturnRows(rows)

		b, err := repo.FindByCampaignAndPlatform(context.Background(), campaignID, domainsync.PlatformAmazonDSP)

		assert.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, "dsp-order-8821", b.RemoteID)
		assert.Equal(t, "v17", b.RemoteVersion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrBindingNotFound when campaign was never pushed", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormBindingRepository(gormDB)

		campaignID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "platform_bindings" WHERE campaign_id = \$1 AND platform = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(campaignID, "AMAZON_DSP", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		b, err := repo.FindByCampaignAndPlatform(context.Background(), campaignID, domainsync.PlatformAmazonDSP)

		assert.Error(t, err)
		assert.Nil(t, b)
		assert.Equal(t, domainsync.ErrBindingNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBindingRepository_DeleteByCampaign(t *testing.T) {
	t.Run("deletes all bindings for a campaign", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormBindingRepository(gormDB)

		campaignID := uuid.New()

		mock.ExpectExec(`DELETE FROM "platform_bindings" WHERE campaign_id = \$1`).
			WithArgs(campaignID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.DeleteByCampaign(context.Background(), campaignID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
