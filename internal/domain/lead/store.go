package lead

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rpggio/leadboard/internal/domain/activity"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// LastRefreshedKey is the local state key holding the last successful load time.
const LastRefreshedKey = "pipelineLastRefreshed"

const bulkTagConcurrency = 4

// Store is the single source of truth for leads by stage. Reads return
// copies; the mapping is only mutated by Store methods.
type Store struct {
	api        LeadAPI
	stages     []string
	state      StateRepository
	activities ActivityRecorder
	logger     *slog.Logger
	now        func() time.Time

	mu            sync.RWMutex
	leads         map[string][]Lead
	generation    uint64
	loadSeq       uint64
	inflight      int
	loaded        bool
	lastErr       error
	lastRefreshed time.Time

	tagsMu   sync.Mutex
	tags     map[string][]string
	tagFetch singleflight.Group

	leadLocks keyedMutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStages replaces the default pipeline stages. The last stage is terminal.
func WithStages(stages []string) StoreOption {
	return func(s *Store) {
		if len(stages) > 0 {
			s.stages = slices.Clone(stages)
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithState persists the refresh timestamp in local state.
func WithState(state StateRepository) StoreOption {
	return func(s *Store) {
		s.state = state
	}
}

// WithActivity records successful changes in the activity feed.
func WithActivity(rec ActivityRecorder) StoreOption {
	return func(s *Store) {
		s.activities = rec
	}
}

// NewStore creates an empty store backed by api.
func NewStore(api LeadAPI, opts ...StoreOption) *Store {
	s := &Store{
		api:    api,
		stages: slices.Clone(DefaultStages),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		tags:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.leads = emptyBuckets(s.stages)
	return s
}

// Stages returns the configured stage titles in order.
func (s *Store) Stages() []string {
	return slices.Clone(s.stages)
}

// ValidStage reports whether stage is a configured stage.
func (s *Store) ValidStage(stage string) bool {
	return slices.Contains(s.stages, stage)
}

// RestoreStatus loads the persisted refresh timestamp, if any.
func (s *Store) RestoreStatus(ctx context.Context) {
	if s.state == nil {
		return
	}
	raw, err := s.state.Get(ctx, LastRefreshedKey)
	if err != nil {
		return
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.Warn("ignoring unreadable refresh timestamp", "value", raw, "error", err)
		return
	}
	s.mu.Lock()
	if s.lastRefreshed.IsZero() {
		s.lastRefreshed = ts
	}
	s.mu.Unlock()
}

// Load fetches all leads and replaces the mapping. When loads overlap, only
// the most recently issued one is applied; superseded results are dropped
// and reported as nil. A failed load keeps the previous data.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.inflight++
	s.mu.Unlock()

	byStage, err := s.api.ListLeadsByStage(ctx)

	s.mu.Lock()
	s.inflight--
	if seq != s.loadSeq {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded pipeline load", "seq", seq)
		return nil
	}
	if err != nil {
		s.lastErr = fmt.Errorf("%w: list leads: %w", ErrRemote, err)
		loadErr := s.lastErr
		s.mu.Unlock()
		s.logger.Warn("pipeline load failed, keeping previous data", "error", err)
		return loadErr
	}
	s.leads = s.normalize(byStage)
	s.generation++
	s.loaded = true
	s.lastErr = nil
	s.lastRefreshed = s.now()
	refreshed := s.lastRefreshed
	total := 0
	for _, bucket := range s.leads {
		total += len(bucket)
	}
	s.mu.Unlock()

	s.persistRefreshed(ctx, refreshed)
	s.record(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypePipelineRefreshed,
		Summary:      fmt.Sprintf("loaded %d leads", total),
	})
	return nil
}

// ManualRefresh is the user-triggered reload.
func (s *Store) ManualRefresh(ctx context.Context) error {
	s.logger.Info("manual pipeline refresh")
	return s.Load(ctx)
}

// Status reports the load state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Loading:       s.inflight > 0,
		Loaded:        s.loaded,
		Err:           s.lastErr,
		LastRefreshed: s.lastRefreshed,
	}
}

// Snapshot returns a deep copy of leads by stage with every stage present.
func (s *Store) Snapshot() map[string][]Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLeads()
}

// Lead returns a copy of the lead with the given id.
func (s *Store) Lead(id string) (Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stage, idx, ok := s.locate(id)
	if !ok {
		return Lead{}, false
	}
	return s.leads[stage][idx].Clone(), true
}

// Metrics computes pipeline metrics from the current leads.
func (s *Store) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeMetrics(s.stages, s.leads, s.now())
}

// StageView returns the leads of stage newest first with tag and value summaries.
func (s *Store) StageView(stage string) (StageView, error) {
	if !s.ValidStage(stage) {
		return StageView{}, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	s.mu.RLock()
	leads := make([]Lead, 0, len(s.leads[stage]))
	for _, l := range s.leads[stage] {
		leads = append(leads, l.Clone())
	}
	metrics := ComputeMetrics(s.stages, s.leads, s.now())
	s.mu.RUnlock()

	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].LastTouched().After(leads[j].LastTouched())
	})

	view := StageView{Stage: stage, Leads: leads, Metrics: metrics.Stages[stage]}
	counts := map[string]int{}
	var order []string
	for _, l := range leads {
		view.TotalValue += l.LoanAmount
		for _, tag := range l.Tags {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	for _, tag := range order {
		view.TopTags = append(view.TopTags, TagCount{Tag: tag, Count: counts[tag]})
	}
	if len(view.TopTags) > 3 {
		view.MoreTags = len(view.TopTags) - 3
		view.TopTags = view.TopTags[:3]
	}
	return view, nil
}

// AddLead creates a lead in stage and inserts the server's copy locally.
func (s *Store) AddLead(ctx context.Context, stage string, draft Draft) (*Lead, error) {
	if !s.ValidStage(stage) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}
	draft.Tags = NormalizeTags(draft.Tags)

	created, err := s.api.CreateLead(ctx, stage, draft)
	if err != nil {
		return nil, fmt.Errorf("%w: create lead: %w", ErrRemote, err)
	}
	if created == nil || created.ID == "" {
		return nil, fmt.Errorf("%w: create lead: response has no lead id", ErrRemote)
	}
	in := created.Clone()
	in.Stage = stage
	in.Tags = NormalizeTags(in.Tags)
	if in.CreatedAt.IsZero() {
		in.CreatedAt = s.now()
	}

	s.mu.Lock()
	out := s.upsert(stage, in)
	s.mu.Unlock()

	s.record(ctx, &activity.ActivityEntry{
		LeadID:       &out.ID,
		Stage:        stage,
		ActivityType: activity.TypeLeadCreated,
		Summary:      fmt.Sprintf("added %s to %s", out.Name, stage),
	})
	return &out, nil
}

// UpdateLead merges patch into the lead wherever it currently sits. An id
// unknown to the store is a no-op and returns (nil, nil).
func (s *Store) UpdateLead(ctx context.Context, id string, patch Patch) (*Lead, error) {
	if err := ValidatePatch(patch); err != nil {
		return nil, err
	}
	unlock := s.leadLocks.Lock(id)
	defer unlock()

	s.mu.Lock()
	before, ok := s.capture(id)
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("update for unknown lead ignored", "lead_id", id)
		return nil, nil
	}
	speculative := patch.applyTo(before.lead, s.now())
	s.leads[before.stage][before.index] = speculative
	s.mu.Unlock()

	updated, err := s.api.UpdateLead(ctx, id, patch)
	if err != nil {
		s.rollback(before)
		return nil, fmt.Errorf("%w: update lead %s: %w", ErrRemote, id, err)
	}
	out := s.commit(before, before.stage, authoritative(updated, speculative))

	s.record(ctx, &activity.ActivityEntry{
		LeadID:       &out.ID,
		Stage:        out.Stage,
		ActivityType: activity.TypeLeadUpdated,
		Summary:      fmt.Sprintf("updated %s", out.Name),
	})
	return &out, nil
}

// MoveLead transfers a lead between stages. Calls for the same lead are
// serialized; each one requires the lead to be in fromStage when it runs.
// On remote failure the lead is restored to its original position.
func (s *Store) MoveLead(ctx context.Context, id, fromStage, toStage string) (*Lead, error) {
	if !s.ValidStage(fromStage) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, fromStage)
	}
	if !s.ValidStage(toStage) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, toStage)
	}
	unlock := s.leadLocks.Lock(id)
	defer unlock()

	s.mu.Lock()
	before, ok := s.capture(id)
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("move for unknown lead ignored", "lead_id", id)
		return nil, nil
	}
	if before.stage != fromStage {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: lead %s is in %q, not %q", ErrNotInStage, id, before.stage, fromStage)
	}
	if fromStage == toStage {
		s.mu.Unlock()
		out := before.lead.Clone()
		return &out, nil
	}
	speculative := before.lead.Clone()
	speculative.Stage = toStage
	speculative.UpdatedAt = s.now()
	s.leads[fromStage] = slices.Delete(s.leads[fromStage], before.index, before.index+1)
	s.leads[toStage] = append(s.leads[toStage], speculative)
	s.mu.Unlock()

	moved, err := s.api.MoveLead(ctx, id, fromStage, toStage)
	if err != nil {
		s.rollback(before)
		return nil, fmt.Errorf("%w: move lead %s: %w", ErrRemote, id, err)
	}
	out := s.commit(before, toStage, authoritative(moved, speculative))

	s.record(ctx, &activity.ActivityEntry{
		LeadID:       &out.ID,
		Stage:        toStage,
		ActivityType: activity.TypeLeadMoved,
		Summary:      fmt.Sprintf("moved %s from %s to %s", out.Name, fromStage, toStage),
	})
	return &out, nil
}

// DeleteLead removes a lead. An unknown id is a no-op.
func (s *Store) DeleteLead(ctx context.Context, id string) error {
	unlock := s.leadLocks.Lock(id)
	defer unlock()

	s.mu.Lock()
	before, ok := s.capture(id)
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("delete for unknown lead ignored", "lead_id", id)
		return nil
	}
	s.leads[before.stage] = slices.Delete(s.leads[before.stage], before.index, before.index+1)
	s.mu.Unlock()

	if err := s.api.DeleteLead(ctx, id); err != nil {
		s.rollback(before)
		return fmt.Errorf("%w: delete lead %s: %w", ErrRemote, id, err)
	}

	s.record(ctx, &activity.ActivityEntry{
		LeadID:       &id,
		Stage:        before.stage,
		ActivityType: activity.TypeLeadDeleted,
		Summary:      fmt.Sprintf("deleted %s", before.lead.Name),
	})
	return nil
}

// GetStageTags returns the tag vocabulary of stage. The first successful
// fetch per stage is cached; concurrent first calls share one request.
func (s *Store) GetStageTags(ctx context.Context, stage string) ([]string, error) {
	if !s.ValidStage(stage) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	if tags, ok := s.cachedTags(stage); ok {
		return tags, nil
	}

	v, err, _ := s.tagFetch.Do(stage, func() (any, error) {
		if tags, ok := s.cachedTags(stage); ok {
			return tags, nil
		}
		tags, err := s.api.StageTags(ctx, stage)
		if err != nil {
			return nil, err
		}
		tags = NormalizeTags(tags)
		s.tagsMu.Lock()
		s.tags[stage] = tags
		s.tagsMu.Unlock()
		return tags, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: stage tags for %q: %w", ErrRemote, stage, err)
	}
	return slices.Clone(v.([]string)), nil
}

func (s *Store) cachedTags(stage string) ([]string, bool) {
	s.tagsMu.Lock()
	defer s.tagsMu.Unlock()
	tags, ok := s.tags[stage]
	if !ok {
		return nil, false
	}
	return slices.Clone(tags), true
}

// UpdateLeadTags replaces the tag set of a lead. An unknown id is a no-op.
func (s *Store) UpdateLeadTags(ctx context.Context, id string, tags []string) (*Lead, error) {
	next := NormalizeTags(tags)
	return s.retag(ctx, id, func([]string) []string { return next })
}

// ToggleStageTag toggles tag on every lead currently in stage. Each lead is
// updated independently; the returned error joins the failures.
func (s *Store) ToggleStageTag(ctx context.Context, stage, tag string) error {
	if !s.ValidStage(stage) {
		return fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	if tag == "" {
		return fmt.Errorf("%w: tag is required", ErrInvalidInput)
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.leads[stage]))
	for _, l := range s.leads[stage] {
		ids = append(ids, l.ID)
	}
	s.mu.RUnlock()

	var (
		errMu sync.Mutex
		errs  []error
	)
	var g errgroup.Group
	g.SetLimit(bulkTagConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.retag(ctx, id, func(current []string) []string {
				return ToggleTag(current, tag)
			})
			if err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (s *Store) retag(ctx context.Context, id string, next func(current []string) []string) (*Lead, error) {
	unlock := s.leadLocks.Lock(id)
	defer unlock()

	s.mu.Lock()
	before, ok := s.capture(id)
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("tag update for unknown lead ignored", "lead_id", id)
		return nil, nil
	}
	tags := next(slices.Clone(before.lead.Tags))
	speculative := before.lead.Clone()
	speculative.Tags = slices.Clone(tags)
	speculative.UpdatedAt = s.now()
	s.leads[before.stage][before.index] = speculative
	s.mu.Unlock()

	updated, err := s.api.UpdateTags(ctx, id, tags)
	if err != nil {
		s.rollback(before)
		return nil, fmt.Errorf("%w: update tags of lead %s: %w", ErrRemote, id, err)
	}
	out := s.commit(before, before.stage, authoritative(updated, speculative))

	s.record(ctx, &activity.ActivityEntry{
		LeadID:       &out.ID,
		Stage:        out.Stage,
		ActivityType: activity.TypeLeadTagsUpdated,
		Summary:      fmt.Sprintf("tags of %s set to %v", out.Name, out.Tags),
	})
	return &out, nil
}

// placement is where a lead sat before a speculative write.
type placement struct {
	stage      string
	index      int
	lead       Lead
	generation uint64
}

// capture records the current placement of id. Caller holds s.mu.
func (s *Store) capture(id string) (placement, bool) {
	stage, idx, ok := s.locate(id)
	if !ok {
		return placement{}, false
	}
	return placement{
		stage:      stage,
		index:      idx,
		lead:       s.leads[stage][idx].Clone(),
		generation: s.generation,
	}, true
}

// rollback restores a captured placement. If a load replaced the mapping
// since the capture, the loaded data already reflects the server and is kept.
func (s *Store) rollback(p placement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != p.generation {
		s.logger.Debug("skipping rollback after reload", "lead_id", p.lead.ID)
		return
	}
	s.removeAll(p.lead.ID)
	bucket := s.leads[p.stage]
	idx := min(p.index, len(bucket))
	s.leads[p.stage] = slices.Insert(bucket, idx, p.lead)
}

// commit places the server's copy of a lead in stage, replacing any other
// copy. If a load replaced the mapping since p was captured, the loaded data
// is kept and the lead as the load left it is returned.
func (s *Store) commit(p placement, stage string, l Lead) Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != p.generation {
		s.logger.Debug("skipping authoritative apply after reload", "lead_id", l.ID)
		if cur, idx, ok := s.locate(l.ID); ok {
			return s.leads[cur][idx].Clone()
		}
		out := l.Clone()
		if !slices.Contains(s.stages, out.Stage) {
			out.Stage = stage
		}
		return out
	}
	return s.upsert(stage, l)
}

// upsert puts l into stage, in place when it is already there, appended
// otherwise. Every other copy of the id is removed. Caller holds s.mu.
func (s *Store) upsert(stage string, l Lead) Lead {
	l = l.Clone()
	l.Stage = stage
	if cur, idx, ok := s.locate(l.ID); ok && cur == stage {
		s.leads[stage][idx] = l
		s.removeAllExcept(l.ID, stage, idx)
		return l.Clone()
	}
	s.removeAll(l.ID)
	s.leads[stage] = append(s.leads[stage], l)
	return l.Clone()
}

func (s *Store) locate(id string) (string, int, bool) {
	for _, stage := range s.stages {
		for i, l := range s.leads[stage] {
			if l.ID == id {
				return stage, i, true
			}
		}
	}
	return "", 0, false
}

func (s *Store) removeAll(id string) {
	for _, stage := range s.stages {
		s.leads[stage] = slices.DeleteFunc(s.leads[stage], func(l Lead) bool { return l.ID == id })
	}
}

func (s *Store) removeAllExcept(id, keepStage string, keepIdx int) {
	for _, stage := range s.stages {
		bucket := s.leads[stage]
		out := bucket[:0]
		for i, l := range bucket {
			if l.ID == id && !(stage == keepStage && i == keepIdx) {
				continue
			}
			out = append(out, l)
		}
		s.leads[stage] = out
	}
}

// normalize maps an API result onto the configured stages, dropping unknown
// stages and duplicate ids.
func (s *Store) normalize(byStage map[string][]Lead) map[string][]Lead {
	out := emptyBuckets(s.stages)
	seen := make(map[string]struct{})
	for _, stage := range s.stages {
		for _, l := range byStage[stage] {
			if l.ID == "" {
				s.logger.Warn("dropping lead without id", "stage", stage, "name", l.Name)
				continue
			}
			if _, dup := seen[l.ID]; dup {
				s.logger.Warn("dropping duplicate lead", "lead_id", l.ID, "stage", stage)
				continue
			}
			seen[l.ID] = struct{}{}
			l = l.Clone()
			l.Stage = stage
			l.Tags = NormalizeTags(l.Tags)
			out[stage] = append(out[stage], l)
		}
	}
	for stage, leads := range byStage {
		if !s.ValidStage(stage) && len(leads) > 0 {
			s.logger.Warn("dropping leads in unknown stage", "stage", stage, "count", len(leads))
		}
	}
	return out
}

func (s *Store) copyLeads() map[string][]Lead {
	out := make(map[string][]Lead, len(s.stages))
	for _, stage := range s.stages {
		bucket := make([]Lead, 0, len(s.leads[stage]))
		for _, l := range s.leads[stage] {
			bucket = append(bucket, l.Clone())
		}
		out[stage] = bucket
	}
	return out
}

func (s *Store) persistRefreshed(ctx context.Context, ts time.Time) {
	if s.state == nil {
		return
	}
	if err := s.state.Set(ctx, LastRefreshedKey, ts.UTC().Format(time.RFC3339Nano)); err != nil {
		s.logger.Warn("failed to persist refresh timestamp", "error", err)
	}
}

func (s *Store) record(ctx context.Context, entry *activity.ActivityEntry) {
	if s.activities == nil {
		return
	}
	if err := s.activities.LogActivity(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", "type", entry.ActivityType, "error", err)
	}
}

func authoritative(fromServer *Lead, speculative Lead) Lead {
	if fromServer == nil || fromServer.ID == "" {
		return speculative
	}
	out := fromServer.Clone()
	out.Tags = NormalizeTags(out.Tags)
	if out.CreatedAt.IsZero() {
		out.CreatedAt = speculative.CreatedAt
	}
	return out
}

func emptyBuckets(stages []string) map[string][]Lead {
	out := make(map[string][]Lead, len(stages))
	for _, stage := range stages {
		out[stage] = []Lead{}
	}
	return out
}

// keyedMutex serializes work per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
