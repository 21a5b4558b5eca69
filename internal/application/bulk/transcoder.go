// Package bulkapp implements bulk sheet generation and ingestion. Rows are
// validated concurrently but outcomes always come back in input order, and
// row commits go through the same per-campaign lock as sync jobs and direct
// edits.
package bulkapp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adsync/backend/internal/domain/bulk"
	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/domain/shared"
	"github.com/adsync/backend/internal/infrastructure/lock"
)

// artifactURLTTL bounds presigned sheet download links
const artifactURLTTL = 15 * time.Minute

// GenerateOptions controls sheet generation
type GenerateOptions struct {
	// IncludeCreatives emits one row per (campaign, creative) pair instead
	// of one row per campaign
	IncludeCreatives bool
}

// Transcoder converts between campaign aggregates and bulk sheets
type Transcoder struct {
	operations bulk.Repository
	campaigns  campaign.Repository
	creatives  campaign.CreativeRepository
	storage    ObjectStorageService
	commits    *lock.KeyedMutex
	events     shared.EventPublisher
	logger     *zap.Logger
	maxRows    int
	workers    int
	keyPrefix  string
}

// NewTranscoder creates a bulk sheet transcoder. commits must be the same
// keyed mutex used by every other writer of campaign aggregates.
func NewTranscoder(
	operations bulk.Repository,
	campaigns campaign.Repository,
	creatives campaign.CreativeRepository,
	storage ObjectStorageService,
	commits *lock.KeyedMutex,
	events shared.EventPublisher,
	logger *zap.Logger,
	maxRows int,
	workers int,
	keyPrefix string,
) *Transcoder {
	if maxRows < 1 {
		maxRows = 10000
	}
	if workers < 1 {
		workers = 1
	}
	if keyPrefix == "" {
		keyPrefix = "bulk-sheets"
	}
	return &Transcoder{
		operations: operations,
		campaigns:  campaigns,
		creatives:  creatives,
		storage:    storage,
		commits:    commits,
		events:     events,
		logger:     logger,
		maxRows:    maxRows,
		workers:    workers,
		keyPrefix:  keyPrefix,
	}
}

// Get finds a bulk operation by ID
func (t *Transcoder) Get(ctx context.Context, id uuid.UUID) (*bulk.Operation, error) {
	return t.operations.FindByID(ctx, id)
}

// List returns bulk operations matching the filter, newest first
func (t *Transcoder) List(ctx context.Context, filter shared.Filter) ([]bulk.Operation, error) {
	return t.operations.FindAll(ctx, filter)
}

// ArtifactURL returns a presigned download URL for a generated sheet
func (t *Transcoder) ArtifactURL(ctx context.Context, id uuid.UUID) (string, error) {
	op, err := t.operations.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if op.ArtifactKey == "" {
		return "", fmt.Errorf("bulk: operation %s has no sheet artifact", id)
	}
	url, _, err := t.storage.GenerateDownloadURL(ctx, op.ArtifactKey, artifactURLTTL)
	return url, err
}

// ---------------------------------------------------------------------------
// Generation
// ---------------------------------------------------------------------------

// Generate exports the selected campaigns as a CSV sheet. Rows are ordered
// by campaign ID then creative ID so unchanged data always produces
// identical bytes; the sheet is also stored as an artifact.
func (t *Transcoder) Generate(ctx context.Context, campaignIDs []uuid.UUID, opts GenerateOptions) ([]byte, *bulk.Operation, error) {
	if len(campaignIDs) == 0 {
		return nil, nil, bulk.ErrEmptySelection
	}

	op, err := bulk.NewOperation(bulk.DirectionGenerate, false)
	if err != nil {
		return nil, nil, err
	}
	if err := op.Start(); err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for _, id := range sortedUnique(campaignIDs) {
		if ctx.Err() != nil {
			t.record(op, bulk.RowOutcome{
				Index: op.TotalRows, Ref: id.String(),
				State: bulk.RowStateFailed, Error: "cancelled before this campaign was exported",
			})
			continue
		}

		c, err := t.campaigns.FindByID(ctx, id)
		if err != nil {
			t.record(op, bulk.RowOutcome{
				Index: op.TotalRows, Ref: id.String(),
				State: bulk.RowStateFailed, Field: "campaign_ref", Error: err.Error(),
			})
			continue
		}

		emitted, err := t.exportCampaign(ctx, c, opts, &rows)
		if err != nil {
			t.record(op, bulk.RowOutcome{
				Index: op.TotalRows, Ref: id.String(),
				State: bulk.RowStateFailed, Error: err.Error(),
			})
			continue
		}
		for i := 0; i < emitted; i++ {
			t.record(op, bulk.RowOutcome{
				Index: op.TotalRows, Ref: c.ID.String(), State: bulk.RowStateApplied,
			})
		}
	}

	data, err := encodeSheet(rows)
	if err != nil {
		t.fail(ctx, op, "failed to encode bulk sheet: "+err.Error())
		return nil, op, err
	}

	key := fmt.Sprintf("%s/%s.csv", t.keyPrefix, op.ID)
	if err := t.storage.Upload(ctx, key, data, "text/csv"); err != nil {
		t.fail(ctx, op, "failed to store sheet artifact: "+err.Error())
		return nil, op, err
	}
	op.SetArtifact(key)

	if err := op.Finalize(); err != nil {
		return nil, nil, err
	}
	op.AddDomainEvent(bulk.NewSheetGeneratedEvent(op))
	t.save(ctx, op)
	t.publish(ctx, op)

	t.logger.Info("bulk sheet generated",
		zap.String("operation_id", op.ID.String()),
		zap.String("artifact_key", key),
		zap.Int("rows", op.TotalRows))
	return data, op, nil
}

// exportCampaign appends the campaign's sheet rows and reports how many it
// emitted. A campaign without creatives still emits its campaign-only row.
func (t *Transcoder) exportCampaign(ctx context.Context, c *campaign.Campaign, opts GenerateOptions, rows *[][]string) (int, error) {
	if !opts.IncludeCreatives {
		row := make([]string, columnCount)
		campaignCells(row, c)
		*rows = append(*rows, row)
		return 1, nil
	}

	creatives, err := t.creatives.FindByCampaign(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	if len(creatives) == 0 {
		row := make([]string, columnCount)
		campaignCells(row, c)
		*rows = append(*rows, row)
		return 1, nil
	}

	for i := range creatives {
		row := make([]string, columnCount)
		campaignCells(row, c)
		creativeCells(row, &creatives[i])
		*rows = append(*rows, row)
	}
	return len(creatives), nil
}

// ---------------------------------------------------------------------------
// Ingestion
// ---------------------------------------------------------------------------

// Ingest imports a bulk sheet. Each row is validated independently and a
// rejected row never affects its neighbors; outcomes mirror input order.
// With validateOnly set, valid rows are staged and nothing is committed.
func (t *Transcoder) Ingest(ctx context.Context, data []byte, validateOnly bool) (*bulk.Operation, error) {
	op, err := bulk.NewOperation(bulk.DirectionIngest, validateOnly)
	if err != nil {
		return nil, err
	}
	if err := op.Start(); err != nil {
		return nil, err
	}

	records, err := decodeSheet(data)
	if err != nil {
		t.fail(ctx, op, err.Error())
		return op, nil
	}
	if len(records) == 0 {
		t.fail(ctx, op, bulk.ErrNoRows.Error())
		return op, nil
	}
	if len(records) > t.maxRows {
		t.fail(ctx, op, fmt.Sprintf("sheet has %d data rows, the limit is %d", len(records), t.maxRows))
		return op, nil
	}

	parsed, rowErrs := t.validateRows(records)

	cancelled := false
	for i := range records {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}
		outcome := bulk.RowOutcome{Index: i, Ref: records[i][colCampaignRef]}
		switch {
		case cancelled:
			outcome.State = bulk.RowStateFailed
			outcome.Error = "cancelled before this row was applied"
		case rowErrs[i] != nil:
			outcome.State = bulk.RowStateFailed
			outcome.Field = rowErrs[i].field
			outcome.Error = rowErrs[i].message
		case validateOnly:
			if err := t.checkReferences(ctx, parsed[i]); err != nil {
				rowFailure(&outcome, err)
			} else {
				outcome.State = bulk.RowStateStaged
			}
		default:
			if err := t.applyRow(ctx, parsed[i]); err != nil {
				rowFailure(&outcome, err)
			} else {
				outcome.State = bulk.RowStateApplied
			}
		}
		t.record(op, outcome)
	}

	if err := op.Finalize(); err != nil {
		return nil, err
	}
	op.AddDomainEvent(bulk.NewReportGeneratedEvent(op))
	t.save(ctx, op)
	t.publish(ctx, op)

	t.logger.Info("bulk sheet ingested",
		zap.String("operation_id", op.ID.String()),
		zap.String("state", op.State.String()),
		zap.Int("total", op.TotalRows),
		zap.Int("applied", op.AppliedRows),
		zap.Int("failed", op.FailedRows))
	return op, nil
}

// validateRows runs row validation across the worker pool. Results are
// written by row index so input order survives the unordered workers.
func (t *Transcoder) validateRows(records [][]string) ([]*parsedRow, []*rowError) {
	parsed := make([]*parsedRow, len(records))
	rowErrs := make([]*rowError, len(records))

	workers := t.workers
	if workers > len(records) {
		workers = len(records)
	}

	jobs := make(chan int)
	var wg stdsync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				parsed[i], rowErrs[i] = parseRow(i, records[i])
			}
		}()
	}
	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return parsed, rowErrs
}

// checkReferences runs the commit path's referential checks without writing
// anything, so a staged row is one a commit of the same bytes would accept.
// A missing campaign or creative is fine; the commit path creates those.
func (t *Transcoder) checkReferences(ctx context.Context, row *parsedRow) error {
	if _, err := t.campaigns.FindByID(ctx, row.campaignRef); err != nil &&
		!errors.Is(err, campaign.ErrCampaignNotFound) {
		return err
	}

	if row.creativeRef == uuid.Nil {
		return nil
	}
	cr, err := t.creatives.FindByID(ctx, row.creativeRef)
	switch {
	case errors.Is(err, campaign.ErrCreativeNotFound):
		return nil
	case err != nil:
		return err
	}
	if cr.CampaignID != row.campaignRef {
		return invalidRow("creative_ref", "creative belongs to another campaign")
	}
	return nil
}

// applyRow commits one validated row under the campaign's commit lock.
// The campaign half upserts intent; rows referencing campaigns defined by
// earlier rows of the same sheet resolve against what those rows created.
func (t *Transcoder) applyRow(ctx context.Context, row *parsedRow) error {
	release, err := t.commits.LockContext(ctx, row.campaignRef.String())
	if err != nil {
		return err
	}
	defer release()

	c, err := t.campaigns.FindByID(ctx, row.campaignRef)
	switch {
	case errors.Is(err, campaign.ErrCampaignNotFound):
		c, err = campaign.NewCampaign(row.campaignName, row.advertiserID, row.phase,
			row.budgetTotal, row.startDate, row.endDate, row.targeting)
		if err != nil {
			return err
		}
		// the sheet owns the identity so later rows and re-ingests
		// resolve to the same campaign
		c.ID = row.campaignRef
		c.ClearDomainEvents()
		c.AddDomainEvent(campaign.NewCampaignCreatedEvent(c))
		if err := applyLifecycle(c, row.campaignStatus); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		// ingest only writes intent on existing campaigns; lifecycle
		// transitions stay with the lifecycle endpoints
		if err := c.Update(row.campaignName, row.budgetTotal, row.startDate, row.endDate, row.targeting); err != nil {
			return err
		}
	}

	if row.creativeRef != uuid.Nil {
		if err := t.applyCreative(ctx, c, row); err != nil {
			return err
		}
	}

	if err := t.campaigns.Save(ctx, c); err != nil {
		return err
	}
	t.publishEvents(ctx, c.GetDomainEvents())
	c.ClearDomainEvents()
	return nil
}

func (t *Transcoder) applyCreative(ctx context.Context, c *campaign.Campaign, row *parsedRow) error {
	cr, err := t.creatives.FindByID(ctx, row.creativeRef)
	switch {
	case errors.Is(err, campaign.ErrCreativeNotFound):
		cr, err = campaign.NewCreative(c.ID, row.creativeName, row.creativeFormat, row.dimensions, row.clickURL, "")
		if err != nil {
			return err
		}
		cr.ID = row.creativeRef
		if row.creativeStatus != campaign.CreativeStatusUploaded {
			if err := cr.SetStatus(row.creativeStatus); err != nil {
				return err
			}
		}
		if err := c.AttachCreative(cr.ID); err != nil && !errors.Is(err, campaign.ErrCreativeAlreadyAttached) {
			return err
		}
	case err != nil:
		return err
	default:
		if cr.CampaignID != c.ID {
			return invalidRow("creative_ref", "creative belongs to another campaign")
		}
		if cr.Status != row.creativeStatus {
			if err := cr.SetStatus(row.creativeStatus); err != nil {
				return err
			}
		}
	}

	if err := t.creatives.Save(ctx, cr); err != nil {
		return err
	}
	t.publishEvents(ctx, cr.GetDomainEvents())
	cr.ClearDomainEvents()
	return nil
}

// applyLifecycle drives a freshly created campaign to the status its sheet
// row names, through the normal transitions
func applyLifecycle(c *campaign.Campaign, status campaign.Status) error {
	switch status {
	case campaign.StatusDraft:
		return nil
	case campaign.StatusActive:
		return c.Activate()
	case campaign.StatusPaused:
		if err := c.Activate(); err != nil {
			return err
		}
		return c.Pause()
	case campaign.StatusCompleted:
		if err := c.Activate(); err != nil {
			return err
		}
		return c.Complete()
	case campaign.StatusArchived:
		return c.Archive()
	default:
		return campaign.ErrCampaignInvalidStatus
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// rowFailure marks the outcome failed, keeping field attribution when the
// error is a rowError.
func rowFailure(outcome *bulk.RowOutcome, err error) {
	outcome.State = bulk.RowStateFailed
	var re *rowError
	if errors.As(err, &re) {
		outcome.Field = re.field
		outcome.Error = re.message
	} else {
		outcome.Error = err.Error()
	}
}

func (t *Transcoder) record(op *bulk.Operation, outcome bulk.RowOutcome) {
	if err := op.RecordRow(outcome); err != nil {
		t.logger.Error("failed to record row outcome",
			zap.String("operation_id", op.ID.String()), zap.Error(err))
	}
}

func (t *Transcoder) fail(ctx context.Context, op *bulk.Operation, message string) {
	if err := op.Fail(message); err != nil {
		t.logger.Error("failed to fail bulk operation",
			zap.String("operation_id", op.ID.String()), zap.Error(err))
		return
	}
	op.AddDomainEvent(bulk.NewReportGeneratedEvent(op))
	t.save(ctx, op)
	t.publish(ctx, op)
}

func (t *Transcoder) save(ctx context.Context, op *bulk.Operation) {
	if err := t.operations.Save(ctx, op); err != nil {
		t.logger.Error("failed to save bulk operation",
			zap.String("operation_id", op.ID.String()), zap.Error(err))
	}
}

func (t *Transcoder) publish(ctx context.Context, op *bulk.Operation) {
	t.publishEvents(ctx, op.GetDomainEvents())
	op.ClearDomainEvents()
}

func (t *Transcoder) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := t.events.Publish(ctx, events...); err != nil {
		t.logger.Error("failed to publish bulk events", zap.Error(err))
	}
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
