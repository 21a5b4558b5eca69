// Package syncapp orchestrates sync jobs between the campaign source and
// the execution platforms. One campaign admits at most one non-terminal
// job at a time; item results commit one at a time under the shared
// per-campaign lock so a cancel arriving mid-flight never half-applies.
package syncapp

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/domain/shared"
	domainsync "github.com/adsync/backend/internal/domain/sync"
	"github.com/adsync/backend/internal/infrastructure/lock"
	"github.com/adsync/backend/internal/infrastructure/retry"
)

// SubmitInput describes a sync job submission
type SubmitInput struct {
	CampaignID uuid.UUID
	Platform   domainsync.PlatformCode
	Direction  domainsync.Direction
	// Scope selects the parts a push transfers; ignored for pulls
	Scope domainsync.Scope
	// CreativeIDs restricts a push to specific creatives; empty means all
	CreativeIDs []uuid.UUID
}

// Orchestrator admits, runs, and finalizes sync jobs
type Orchestrator struct {
	jobs      domainsync.JobRepository
	bindings  domainsync.BindingRepository
	campaigns campaign.Repository
	creatives campaign.CreativeRepository
	adapters  domainsync.AdapterRegistry
	retrier   *retry.Controller
	admit     *lock.KeyedMutex
	commits   *lock.KeyedMutex
	events    shared.EventPublisher
	logger    *zap.Logger

	jobTimeout time.Duration
	slots      chan struct{}

	mu      stdsync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      stdsync.WaitGroup
}

// NewOrchestrator creates a sync orchestrator. commits must be the same
// keyed mutex used by every other writer of campaign aggregates.
func NewOrchestrator(
	jobs domainsync.JobRepository,
	bindings domainsync.BindingRepository,
	campaigns campaign.Repository,
	creatives campaign.CreativeRepository,
	adapters domainsync.AdapterRegistry,
	retrier *retry.Controller,
	commits *lock.KeyedMutex,
	events shared.EventPublisher,
	logger *zap.Logger,
	maxConcurrentJobs int,
	jobTimeout time.Duration,
) *Orchestrator {
	if maxConcurrentJobs < 1 {
		maxConcurrentJobs = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	return &Orchestrator{
		jobs:       jobs,
		bindings:   bindings,
		campaigns:  campaigns,
		creatives:  creatives,
		adapters:   adapters,
		retrier:    retrier,
		admit:      lock.NewKeyedMutex(),
		commits:    commits,
		events:     events,
		logger:     logger,
		jobTimeout: jobTimeout,
		slots:      make(chan struct{}, maxConcurrentJobs),
		cancels:    make(map[uuid.UUID]context.CancelFunc),
	}
}

// Submit admits a new sync job and starts it in the background. It returns
// the pending job, or ErrConflict when another job is already in flight
// for the campaign.
func (o *Orchestrator) Submit(ctx context.Context, input SubmitInput) (*domainsync.Job, error) {
	if !input.Direction.IsValid() {
		return nil, domainsync.Invalid("direction", "direction must be push or pull")
	}

	c, err := o.campaigns.FindByID(ctx, input.CampaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == campaign.StatusArchived {
		return nil, domainsync.Invalid("campaign", "archived campaigns cannot be synchronized")
	}

	job, creativesByID, err := o.planJob(ctx, c, input)
	if err != nil {
		return nil, err
	}

	// admission and the pending save serialize per campaign so two
	// concurrent submissions cannot both pass the in-flight check
	release, err := o.admit.LockContext(ctx, input.CampaignID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := o.jobs.FindActiveByCampaign(ctx, input.CampaignID); err == nil {
		return nil, domainsync.ErrConflict
	} else if !errors.Is(err, domainsync.ErrJobNotFound) {
		return nil, err
	}

	if err := o.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(context.Background(), o.jobTimeout)
	o.registerCancel(job.ID, cancel)
	o.wg.Add(1)
	go o.run(runCtx, cancel, job, c, creativesByID)

	o.logger.Info("sync job admitted",
		zap.String("job_id", job.ID.String()),
		zap.String("campaign_id", c.ID.String()),
		zap.String("platform", job.Platform.String()),
		zap.String("direction", job.Direction.String()))
	return job, nil
}

// Status finds a sync job by ID
func (o *Orchestrator) Status(ctx context.Context, jobID uuid.UUID) (*domainsync.Job, error) {
	return o.jobs.FindByID(ctx, jobID)
}

// History returns the job history for a campaign, newest first
func (o *Orchestrator) History(ctx context.Context, campaignID uuid.UUID, filter shared.Filter) ([]domainsync.Job, error) {
	return o.jobs.FindByCampaign(ctx, campaignID, filter)
}

// ListBindings returns the platform bindings held by a campaign
func (o *Orchestrator) ListBindings(ctx context.Context, campaignID uuid.UUID) ([]domainsync.Binding, error) {
	if _, err := o.campaigns.FindByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return o.bindings.FindByCampaign(ctx, campaignID)
}

// Cancel stops a non-terminal job. Completed item outcomes are kept;
// in-flight and pending items are recorded as cancelled.
func (o *Orchestrator) Cancel(ctx context.Context, jobID uuid.UUID) error {
	job, err := o.jobs.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.State.IsTerminal() {
		return domainsync.Invalid("state", "job is already in a terminal state")
	}

	if cancel, ok := o.lookupCancel(jobID); ok {
		cancel()
		return nil
	}

	// no runner holds the job (e.g. orphaned by a restart); settle it here
	if err := job.Cancel(); err != nil {
		return err
	}
	if err := o.jobs.Save(ctx, job); err != nil {
		return err
	}
	o.publishJob(ctx, job)
	return nil
}

// RetryFailed submits a follow-up job covering only the items that failed
// in a terminal job. Succeeded items are never re-sent; a failed campaign
// shell invalidates everything, so the follow-up re-pushes the full scope.
func (o *Orchestrator) RetryFailed(ctx context.Context, jobID uuid.UUID) (*domainsync.Job, error) {
	prev, err := o.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !prev.State.IsTerminal() {
		return nil, domainsync.Invalid("state", "job is still in flight")
	}

	if prev.Direction == domainsync.DirectionPull {
		return o.Submit(ctx, SubmitInput{
			CampaignID: prev.CampaignID,
			Platform:   prev.Platform,
			Direction:  domainsync.DirectionPull,
		})
	}

	scope, creativeIDs := prev.FailedScope()
	for _, item := range prev.Items {
		if item.Kind == domainsync.ItemCampaign && item.State == domainsync.ItemStateFailed {
			scope = prev.Scope
			creativeIDs = nil
			break
		}
	}
	if scope.IsEmpty() {
		return nil, domainsync.Invalid("scope", "job has no failed items to retry")
	}

	return o.Submit(ctx, SubmitInput{
		CampaignID:  prev.CampaignID,
		Platform:    prev.Platform,
		Direction:   domainsync.DirectionPush,
		Scope:       scope,
		CreativeIDs: creativeIDs,
	})
}

// Stop cancels every running job and waits for runners to settle their
// terminal states, or until ctx is done
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	for _, cancel := range o.cancels {
		cancel()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// Planning
// ---------------------------------------------------------------------------

// planJob builds the pending job with its full item plan. The campaign
// shell is always the first push item; creatives follow in repository
// order so the outcome log is deterministic.
func (o *Orchestrator) planJob(ctx context.Context, c *campaign.Campaign, input SubmitInput) (*domainsync.Job, map[uuid.UUID]*campaign.Creative, error) {
	if input.Direction == domainsync.DirectionPull {
		job, err := domainsync.NewPullJob(c.ID, input.Platform)
		if err != nil {
			return nil, nil, err
		}
		if err := job.PlanItem(domainsync.ItemPerformance, uuid.Nil); err != nil {
			return nil, nil, err
		}
		return job, nil, nil
	}

	job, err := domainsync.NewPushJob(c.ID, input.Platform, input.Scope)
	if err != nil {
		return nil, nil, err
	}
	if err := job.PlanItem(domainsync.ItemCampaign, uuid.Nil); err != nil {
		return nil, nil, err
	}

	creativesByID := make(map[uuid.UUID]*campaign.Creative)
	if input.Scope.Creatives {
		all, err := o.creatives.FindByCampaign(ctx, c.ID)
		if err != nil {
			return nil, nil, err
		}
		restricted := make(map[uuid.UUID]bool, len(input.CreativeIDs))
		for _, id := range input.CreativeIDs {
			if !c.OwnsCreative(id) {
				return nil, nil, campaign.ErrCreativeNotOwned
			}
			restricted[id] = true
		}
		for i := range all {
			cr := &all[i]
			if len(restricted) > 0 && !restricted[cr.ID] {
				continue
			}
			if err := job.PlanItem(domainsync.ItemCreative, cr.ID); err != nil {
				return nil, nil, err
			}
			creativesByID[cr.ID] = cr
		}
	}
	if input.Scope.Targeting {
		if err := job.PlanItem(domainsync.ItemTargeting, uuid.Nil); err != nil {
			return nil, nil, err
		}
	}
	if input.Scope.Budget {
		if err := job.PlanItem(domainsync.ItemBudget, uuid.Nil); err != nil {
			return nil, nil, err
		}
	}
	return job, creativesByID, nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, job *domainsync.Job, c *campaign.Campaign, creativesByID map[uuid.UUID]*campaign.Creative) {
	defer o.wg.Done()
	defer cancel()
	defer o.unregisterCancel(job.ID)

	// concurrency gate; pending jobs wait here for a slot
	select {
	case o.slots <- struct{}{}:
		defer func() { <-o.slots }()
	case <-ctx.Done():
		o.settle(job)
		return
	}

	if err := job.Start(); err != nil {
		o.logger.Error("failed to start sync job",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		return
	}
	o.saveJob(job)

	binding, err := o.bindings.FindByCampaignAndPlatform(ctx, c.ID, job.Platform)
	if errors.Is(err, domainsync.ErrBindingNotFound) {
		binding = nil
	} else if err != nil {
		o.abort(job, domainsync.ClassifyReason(err), err.Error())
		return
	}

	adapter, err := o.adapters.GetAdapter(job.Platform)
	if err != nil {
		o.abort(job, domainsync.ClassifyReason(err), err.Error())
		return
	}

	if job.Direction == domainsync.DirectionPull && binding == nil {
		o.abort(job, domainsync.ReasonNotFound, "campaign was never pushed to this platform")
		return
	}

	policy := retry.PolicyFor(job.Platform)

	for i := range job.Items {
		if ctx.Err() != nil {
			break
		}
		var stop bool
		if job.Direction == domainsync.DirectionPull {
			stop = o.runPullItem(ctx, policy, adapter, job, i, c, &binding)
		} else {
			stop = o.runPushItem(ctx, policy, adapter, job, i, c, creativesByID, &binding)
		}
		if stop {
			break
		}
	}

	o.settle(job)
}

// runPushItem executes one push item and commits its outcome. It returns
// true when the job must stop, which only a campaign shell failure causes:
// without a confirmed shell the sibling items have nothing to attach to.
func (o *Orchestrator) runPushItem(
	ctx context.Context,
	policy retry.Policy,
	adapter domainsync.Adapter,
	job *domainsync.Job,
	index int,
	c *campaign.Campaign,
	creativesByID map[uuid.UUID]*campaign.Creative,
	binding **domainsync.Binding,
) bool {
	item := job.Items[index]

	// the ownership table is the authority on what a push may transmit
	if err := domainsync.AuthorizePush(item.Kind); err != nil {
		o.commitItem(ctx, job, c.ID, func() error {
			return job.FailItem(index, 0, domainsync.ReasonValidation, err.Error())
		})
		return false
	}

	var cr *campaign.Creative
	if item.Kind == domainsync.ItemCreative {
		cr = creativesByID[item.CreativeID]
		if cr == nil {
			o.commitItem(ctx, job, c.ID, func() error {
				return job.FailItem(index, 0, domainsync.ReasonNotFound, "creative not found")
			})
			return false
		}
	}

	var result *domainsync.PushResult
	attempts, err := o.retrier.Execute(ctx, policy, "push "+string(item.Kind), func(ctx context.Context) error {
		var pushErr error
		var r *domainsync.PushResult
		switch item.Kind {
		case domainsync.ItemCampaign:
			r, pushErr = adapter.PushCampaign(ctx, c, *binding)
		case domainsync.ItemCreative:
			r, pushErr = adapter.PushCreative(ctx, c, cr, *binding)
		case domainsync.ItemTargeting:
			r, pushErr = adapter.PushTargeting(ctx, c, *binding)
		case domainsync.ItemBudget:
			r, pushErr = adapter.PushBudget(ctx, c, *binding)
		default:
			return domainsync.Invalid("item", "unexpected item kind for a push job")
		}
		if pushErr != nil {
			return pushErr
		}
		result = r
		return nil
	})

	// a cancel that raced the attempt discards the in-flight result
	if ctx.Err() != nil {
		return true
	}

	if err != nil {
		reason := domainsync.ClassifyReason(err)
		o.commitItem(ctx, job, c.ID, func() error {
			if failErr := job.FailItem(index, attempts, reason, err.Error()); failErr != nil {
				return failErr
			}
			if item.Kind != domainsync.ItemCampaign {
				return nil
			}
			// without a confirmed shell the sibling items have nothing
			// to attach to
			return job.Abort(reason, err.Error())
		})
		if item.Kind == domainsync.ItemCampaign {
			o.logger.Warn("campaign shell push failed, aborting job",
				zap.String("job_id", job.ID.String()),
				zap.String("reason", string(reason)))
			return true
		}
		return false
	}

	o.commitItem(ctx, job, c.ID, func() error {
		if err := job.CompleteItem(index, attempts); err != nil {
			return err
		}
		return o.confirmBinding(ctx, c.ID, job.Platform, binding, result)
	})
	return false
}

// runPullItem executes the performance pull and commits the delivery facts.
// When the remote platform reports the campaign missing, the local campaign
// is archived: the execution platform is authoritative for its own entities.
func (o *Orchestrator) runPullItem(
	ctx context.Context,
	policy retry.Policy,
	adapter domainsync.Adapter,
	job *domainsync.Job,
	index int,
	c *campaign.Campaign,
	binding **domainsync.Binding,
) bool {
	// the ownership table is the authority on what a pull may write
	if err := domainsync.AuthorizePullWrite(job.Items[index].Kind); err != nil {
		o.commitItem(ctx, job, c.ID, func() error {
			return job.FailItem(index, 0, domainsync.ReasonValidation, err.Error())
		})
		return false
	}

	var report *domainsync.PerformanceReport
	attempts, err := o.retrier.Execute(ctx, policy, "pull performance", func(ctx context.Context) error {
		r, pullErr := adapter.PullPerformance(ctx, c, *binding)
		if pullErr != nil {
			return pullErr
		}
		report = r
		return nil
	})

	if ctx.Err() != nil {
		return true
	}

	if errors.Is(err, domainsync.ErrRemoteCampaignNotFound) {
		o.archiveRemoteDeleted(ctx, job, index, attempts, c)
		return true
	}
	if err != nil {
		reason := domainsync.ClassifyReason(err)
		o.commitItem(ctx, job, c.ID, func() error {
			return job.FailItem(index, attempts, reason, err.Error())
		})
		return false
	}

	o.commitItem(ctx, job, c.ID, func() error {
		return o.applyPerformance(ctx, job, index, attempts, c.ID, job.Platform, binding, report)
	})
	return false
}

// applyPerformance writes the pulled delivery facts. The campaign is
// reloaded under the commit lock so concurrent intent edits are preserved;
// a pull only ever touches spend and per-creative metrics.
func (o *Orchestrator) applyPerformance(
	ctx context.Context,
	job *domainsync.Job,
	index, attempts int,
	campaignID uuid.UUID,
	platform domainsync.PlatformCode,
	binding **domainsync.Binding,
	report *domainsync.PerformanceReport,
) error {
	fresh, err := o.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return job.FailItem(index, attempts, domainsync.ClassifyReason(err), err.Error())
	}
	if err := fresh.RecordSpend(report.Spend); err != nil {
		return job.FailItem(index, attempts, domainsync.ReasonValidation, err.Error())
	}
	if err := o.campaigns.Save(ctx, fresh); err != nil {
		return job.FailItem(index, attempts, domainsync.ReasonInternal, err.Error())
	}

	for _, perf := range report.Creatives {
		cr, err := o.creatives.FindByID(ctx, perf.CreativeID)
		if errors.Is(err, campaign.ErrCreativeNotFound) {
			o.logger.Warn("pull reported metrics for unknown creative",
				zap.String("campaign_id", campaignID.String()),
				zap.String("creative_id", perf.CreativeID.String()))
			continue
		}
		if err != nil {
			return job.FailItem(index, attempts, domainsync.ReasonInternal, err.Error())
		}
		cr.RecordPerformance(perf.Impressions, perf.Clicks, perf.Conversions)
		if err := o.creatives.Save(ctx, cr); err != nil {
			return job.FailItem(index, attempts, domainsync.ReasonInternal, err.Error())
		}
	}

	if err := o.confirmBinding(ctx, campaignID, platform, binding, &domainsync.PushResult{RemoteVersion: report.RemoteVersion}); err != nil {
		return err
	}
	return job.CompleteItem(index, attempts)
}

// archiveRemoteDeleted handles a pull discovering the remote campaign is
// gone: the local campaign is archived, its bindings are dropped, and the
// pull item fails with a not-found outcome
func (o *Orchestrator) archiveRemoteDeleted(ctx context.Context, job *domainsync.Job, index, attempts int, c *campaign.Campaign) {
	o.commitItem(ctx, job, c.ID, func() error {
		fresh, err := o.campaigns.FindByID(ctx, c.ID)
		if err != nil {
			return job.FailItem(index, attempts, domainsync.ClassifyReason(err), err.Error())
		}
		if err := fresh.Archive(); err == nil {
			if err := o.campaigns.Save(ctx, fresh); err != nil {
				return job.FailItem(index, attempts, domainsync.ReasonInternal, err.Error())
			}
			if err := o.bindings.DeleteByCampaign(ctx, c.ID); err != nil {
				o.logger.Error("failed to drop bindings of remotely deleted campaign",
					zap.String("campaign_id", c.ID.String()), zap.Error(err))
			}
			o.publishCampaign(ctx, fresh)
			o.logger.Warn("campaign archived: deleted on remote platform",
				zap.String("campaign_id", c.ID.String()),
				zap.String("platform", job.Platform.String()))
		}
		return job.FailItem(index, attempts, domainsync.ReasonNotFound,
			"campaign not found on remote platform")
	})
}

// confirmBinding records a confirmed remote exchange. The binding is
// created only on the first confirmed push; later successes advance the
// tracked remote version.
func (o *Orchestrator) confirmBinding(ctx context.Context, campaignID uuid.UUID, platform domainsync.PlatformCode, binding **domainsync.Binding, result *domainsync.PushResult) error {
	if *binding == nil {
		b, err := domainsync.NewBinding(campaignID, platform, result.RemoteID, result.RemoteVersion)
		if err != nil {
			return err
		}
		if err := o.bindings.Save(ctx, b); err != nil {
			return err
		}
		*binding = b
		return nil
	}
	(*binding).Touch(result.RemoteVersion)
	return o.bindings.Save(ctx, *binding)
}

// commitItem applies one item outcome under the per-campaign commit lock
// and persists the job. The lock is what keeps sync commits, bulk ingest
// rows, and direct edits from interleaving on one campaign.
func (o *Orchestrator) commitItem(ctx context.Context, job *domainsync.Job, campaignID uuid.UUID, apply func() error) {
	release := o.commits.Lock(campaignID.String())
	defer release()

	if err := apply(); err != nil {
		o.logger.Error("failed to commit item outcome",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		return
	}
	o.saveJob(job)
}

// abort settles a job-level failure and publishes the completion event
func (o *Orchestrator) abort(job *domainsync.Job, reason domainsync.Reason, message string) {
	if err := job.Abort(reason, message); err != nil {
		o.logger.Error("failed to abort sync job",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		return
	}
	o.saveJob(job)
	o.publishJob(context.Background(), job)
}

// settle drives the job to its terminal state once execution stops,
// whether it ran to completion or was cancelled mid-flight
func (o *Orchestrator) settle(job *domainsync.Job) {
	if job.State.IsTerminal() {
		o.publishJob(context.Background(), job)
		return
	}

	var err error
	if job.State == domainsync.JobStatePending {
		err = job.Cancel()
	} else {
		err = job.Finalize()
	}
	if err != nil {
		o.logger.Error("failed to finalize sync job",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		return
	}
	o.saveJob(job)
	o.publishJob(context.Background(), job)

	o.logger.Info("sync job settled",
		zap.String("job_id", job.ID.String()),
		zap.String("state", job.State.String()),
		zap.String("reason", string(job.Reason)))
}

func (o *Orchestrator) saveJob(job *domainsync.Job) {
	// saves run on a fresh context: a cancelled job must still have its
	// terminal state persisted
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.jobs.Save(ctx, job); err != nil {
		o.logger.Error("failed to save sync job",
			zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}

func (o *Orchestrator) publishJob(ctx context.Context, job *domainsync.Job) {
	events := job.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := o.events.Publish(ctx, events...); err != nil {
		o.logger.Error("failed to publish sync events",
			zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	job.ClearDomainEvents()
}

func (o *Orchestrator) publishCampaign(ctx context.Context, c *campaign.Campaign) {
	events := c.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := o.events.Publish(ctx, events...); err != nil {
		o.logger.Error("failed to publish campaign events",
			zap.String("campaign_id", c.ID.String()), zap.Error(err))
	}
	c.ClearDomainEvents()
}

func (o *Orchestrator) registerCancel(jobID uuid.UUID, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancels[jobID] = cancel
}

func (o *Orchestrator) unregisterCancel(jobID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.cancels, jobID)
}

func (o *Orchestrator) lookupCancel(jobID uuid.UUID) (context.CancelFunc, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cancel, ok := o.cancels[jobID]
	return cancel, ok
}
