package lead_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpggio/leadboard/internal/domain/lead"
	"github.com/rpggio/leadboard/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newStore(api lead.LeadAPI, opts ...lead.StoreOption) *lead.Store {
	return lead.NewStore(api, append([]lead.StoreOption{lead.WithClock(clock)}, opts...)...)
}

func loadedStore(t *testing.T, api *mocks.LeadAPI, byStage map[string][]lead.Lead) *lead.Store {
	t.Helper()
	ctx := context.Background()
	api.On("ListLeadsByStage", ctx).Return(byStage, nil).Once()
	store := newStore(api)
	require.NoError(t, store.Load(ctx))
	return store
}

func ids(leads []lead.Lead) []string {
	out := make([]string, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.ID)
	}
	return out
}

// stubAPI lets a test control timing of individual calls.
type stubAPI struct {
	listFn func(context.Context) (map[string][]lead.Lead, error)
	tagsFn func(context.Context, string) ([]string, error)
	moveFn func(context.Context, string, string, string) (*lead.Lead, error)
}

var errNotStubbed = errors.New("not stubbed")

func (s *stubAPI) ListLeadsByStage(ctx context.Context) (map[string][]lead.Lead, error) {
	return s.listFn(ctx)
}
func (s *stubAPI) StageTags(ctx context.Context, stage string) ([]string, error) {
	return s.tagsFn(ctx, stage)
}
func (s *stubAPI) CreateLead(context.Context, string, lead.Draft) (*lead.Lead, error) {
	return nil, errNotStubbed
}
func (s *stubAPI) UpdateLead(context.Context, string, lead.Patch) (*lead.Lead, error) {
	return nil, errNotStubbed
}
func (s *stubAPI) MoveLead(ctx context.Context, id, from, to string) (*lead.Lead, error) {
	return s.moveFn(ctx, id, from, to)
}
func (s *stubAPI) DeleteLead(context.Context, string) error { return errNotStubbed }
func (s *stubAPI) UpdateTags(context.Context, string, []string) (*lead.Lead, error) {
	return nil, errNotStubbed
}

func TestStore_AddLead_NewLeadScenario(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{"New Lead": {}, "Closed": {}})

	draft := lead.Draft{Name: "Jane", LoanAmount: 5000}
	api.On("CreateLead", ctx, "New Lead", mock.Anything).Return(&lead.Lead{
		ID:         "l1",
		Name:       "Jane",
		LoanAmount: 5000,
	}, nil)

	created, err := store.AddLead(ctx, "New Lead", draft)
	require.NoError(t, err)
	require.Equal(t, "New Lead", created.Stage)

	snap := store.Snapshot()
	require.Len(t, snap["New Lead"], 1)
	require.Equal(t, "Jane", snap["New Lead"][0].Name)
	require.Empty(t, snap["Closed"])

	metrics := store.Metrics()
	require.Equal(t, 1, metrics.TotalLeads)
	require.Equal(t, 5000.0, metrics.TotalValue)
	require.Equal(t, 0.0, metrics.ConversionRate)
}

func TestStore_AddLead_ValidationSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := newStore(api)

	_, err := store.AddLead(ctx, "Nowhere", lead.Draft{Name: "Jane"})
	require.ErrorIs(t, err, lead.ErrInvalidStage)

	_, err = store.AddLead(ctx, "New Lead", lead.Draft{Name: "  "})
	require.ErrorIs(t, err, lead.ErrInvalidInput)

	_, err = store.AddLead(ctx, "New Lead", lead.Draft{Name: "Jane", LoanAmount: -1})
	require.ErrorIs(t, err, lead.ErrInvalidInput)

	api.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_AddLead_RemoteFailureLeavesState(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"New Lead": {{ID: "a", Name: "A"}},
	})
	before := store.Snapshot()

	api.On("CreateLead", ctx, "New Lead", mock.Anything).Return(nil, errors.New("503"))
	_, err := store.AddLead(ctx, "New Lead", lead.Draft{Name: "Jane"})
	require.ErrorIs(t, err, lead.ErrRemote)
	require.Equal(t, before, store.Snapshot())
}

func TestStore_AddThenLoad_NoDuplicates(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{})

	api.On("CreateLead", ctx, "New Lead", mock.Anything).Return(&lead.Lead{ID: "l1", Name: "Jane"}, nil)
	_, err := store.AddLead(ctx, "New Lead", lead.Draft{Name: "Jane"})
	require.NoError(t, err)

	api.On("ListLeadsByStage", ctx).Return(map[string][]lead.Lead{
		"New Lead":  {{ID: "l1", Name: "Jane"}},
		"Contacted": {{ID: "l1", Name: "Jane"}},
	}, nil).Once()
	require.NoError(t, store.Load(ctx))

	snap := store.Snapshot()
	require.Equal(t, []string{"l1"}, ids(snap["New Lead"]))
	require.Empty(t, snap["Contacted"])
}

func TestStore_MoveLead_TransfersBetweenStages(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"New Lead": {{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		"Closed":   {},
	})

	api.On("MoveLead", ctx, "a", "New Lead", "Closed").Return(&lead.Lead{ID: "a", Name: "A", Stage: "Closed"}, nil)
	moved, err := store.MoveLead(ctx, "a", "New Lead", "Closed")
	require.NoError(t, err)
	require.Equal(t, "Closed", moved.Stage)

	snap := store.Snapshot()
	require.Equal(t, []string{"b"}, ids(snap["New Lead"]))
	require.Equal(t, []string{"a"}, ids(snap["Closed"]))
	require.Equal(t, 2, store.Metrics().TotalLeads)
	require.Equal(t, 50.0, store.Metrics().ConversionRate)
}

func TestStore_MoveLead_RemoteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"New Lead":  {{ID: "a"}, {ID: "b"}},
		"Contacted": {{ID: "c"}},
	})

	api.On("MoveLead", ctx, "a", "New Lead", "Contacted").Return(nil, errors.New("timeout"))
	_, err := store.MoveLead(ctx, "a", "New Lead", "Contacted")
	require.ErrorIs(t, err, lead.ErrRemote)

	snap := store.Snapshot()
	require.Equal(t, []string{"a", "b"}, ids(snap["New Lead"]))
	require.Equal(t, []string{"c"}, ids(snap["Contacted"]))
}

func TestStore_MoveLead_WrongSourceStage(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"Contacted": {{ID: "a"}},
	})

	_, err := store.MoveLead(ctx, "a", "New Lead", "Closed")
	require.ErrorIs(t, err, lead.ErrNotInStage)

	moved, err := store.MoveLead(ctx, "missing", "New Lead", "Closed")
	require.NoError(t, err)
	require.Nil(t, moved)

	api.AssertNotCalled(t, "MoveLead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_MoveLead_SerializesSameLead(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	api := &stubAPI{
		listFn: func(context.Context) (map[string][]lead.Lead, error) {
			return map[string][]lead.Lead{"New Lead": {{ID: "a"}}}, nil
		},
		moveFn: func(_ context.Context, id, _, to string) (*lead.Lead, error) {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
			}
			return &lead.Lead{ID: id, Stage: to}, nil
		},
	}
	store := newStore(api)
	require.NoError(t, store.Load(ctx))

	errs := make(chan error, 2)
	go func() {
		_, err := store.MoveLead(ctx, "a", "New Lead", "Contacted")
		errs <- err
	}()
	<-entered
	go func() {
		_, err := store.MoveLead(ctx, "a", "New Lead", "Pre-Approved")
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
	close(release)

	var failures []error
	for range 2 {
		if err := <-errs; err != nil {
			failures = append(failures, err)
		}
	}
	require.Len(t, failures, 1)
	require.ErrorIs(t, failures[0], lead.ErrNotInStage)
	require.Equal(t, int32(1), calls.Load())

	snap := store.Snapshot()
	require.Equal(t, []string{"a"}, ids(snap["Contacted"]))
	require.Empty(t, snap["Pre-Approved"])
}

func TestStore_Load_FailureKeepsPreviousData(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"New Lead": {{ID: "a"}},
	})

	api.On("ListLeadsByStage", ctx).Return(nil, errors.New("connection refused")).Once()
	err := store.ManualRefresh(ctx)
	require.ErrorIs(t, err, lead.ErrRemote)

	status := store.Status()
	require.True(t, status.Loaded)
	require.False(t, status.Loading)
	require.ErrorIs(t, status.Err, lead.ErrRemote)
	require.Equal(t, []string{"a"}, ids(store.Snapshot()["New Lead"]))
}

func TestStore_Load_EmptyIsNotAnError(t *testing.T) {
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{})

	status := store.Status()
	require.True(t, status.Loaded)
	require.NoError(t, status.Err)
	require.Equal(t, fixedNow, status.LastRefreshed)
	for _, stage := range lead.DefaultStages {
		require.NotNil(t, store.Snapshot()[stage])
	}
}

func TestStore_Load_DropsUnknownStages(t *testing.T) {
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"Lost":     {{ID: "x"}},
		"New Lead": {{ID: "a", Tags: []string{"vip", "vip", ""}}},
	})

	snap := store.Snapshot()
	require.NotContains(t, snap, "Lost")
	require.Equal(t, []string{"vip"}, snap["New Lead"][0].Tags)
	require.Equal(t, "New Lead", snap["New Lead"][0].Stage)
}

func TestStore_Load_LastIssuedWins(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	api := &stubAPI{
		listFn: func(context.Context) (map[string][]lead.Lead, error) {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
				return map[string][]lead.Lead{"New Lead": {{ID: "stale"}}}, nil
			}
			return map[string][]lead.Lead{"New Lead": {{ID: "fresh"}}}, nil
		},
	}
	store := newStore(api)

	done := make(chan error, 1)
	go func() { done <- store.Load(ctx) }()
	<-entered
	require.True(t, store.Status().Loading)

	require.NoError(t, store.Load(ctx))
	close(release)
	require.NoError(t, <-done)

	require.Equal(t, []string{"fresh"}, ids(store.Snapshot()["New Lead"]))
	require.False(t, store.Status().Loading)
}

func TestStore_Load_PersistsRefreshTimestamp(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	state := &mocks.StateRepository{}

	api.On("ListLeadsByStage", ctx).Return(map[string][]lead.Lead{}, nil)
	state.On("Set", ctx, lead.LastRefreshedKey, fixedNow.Format(time.RFC3339Nano)).Return(nil)

	store := newStore(api, lead.WithState(state))
	require.NoError(t, store.Load(ctx))
	state.AssertExpectations(t)
}

func TestStore_RestoreStatus(t *testing.T) {
	ctx := context.Background()
	state := &mocks.StateRepository{}
	earlier := fixedNow.Add(-time.Hour)
	state.On("Get", ctx, lead.LastRefreshedKey).Return(earlier.Format(time.RFC3339Nano), nil)

	store := newStore(&mocks.LeadAPI{}, lead.WithState(state))
	store.RestoreStatus(ctx)

	status := store.Status()
	require.True(t, earlier.Equal(status.LastRefreshed))
	require.False(t, status.Loaded)
}

func TestStore_GetStageTags_CachedAfterFirstFetch(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	api.On("StageTags", ctx, "Contacted").Return([]string{"hot", "follow-up"}, nil).Once()

	store := newStore(api)
	first, err := store.GetStageTags(ctx, "Contacted")
	require.NoError(t, err)
	second, err := store.GetStageTags(ctx, "Contacted")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, []string{"hot", "follow-up"}, second)
	api.AssertNumberOfCalls(t, "StageTags", 1)
}

func TestStore_GetStageTags_FailureNotCached(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	api.On("StageTags", ctx, "Closed").Return(nil, errors.New("502")).Once()
	api.On("StageTags", ctx, "Closed").Return([]string{"funded"}, nil).Once()

	store := newStore(api)
	_, err := store.GetStageTags(ctx, "Closed")
	require.ErrorIs(t, err, lead.ErrRemote)

	tags, err := store.GetStageTags(ctx, "Closed")
	require.NoError(t, err)
	require.Equal(t, []string{"funded"}, tags)
}

func TestStore_GetStageTags_ConcurrentCallsShareRequest(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var calls atomic.Int32
	api := &stubAPI{
		tagsFn: func(context.Context, string) ([]string, error) {
			calls.Add(1)
			<-release
			return []string{"vip"}, nil
		},
	}
	store := newStore(api)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tags, err := store.GetStageTags(ctx, "New Lead")
			require.NoError(t, err)
			require.Equal(t, []string{"vip"}, tags)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
}

func TestStore_UpdateLead(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"Contacted": {{ID: "a", Name: "Ann", LoanType: "FHA", LoanAmount: 100}},
	})

	amount := 250000.0
	patch := lead.Patch{LoanAmount: &amount}
	api.On("UpdateLead", ctx, "a", patch).Return(&lead.Lead{
		ID: "a", Name: "Ann", LoanType: "FHA", LoanAmount: amount, UpdatedAt: fixedNow,
	}, nil)

	updated, err := store.UpdateLead(ctx, "a", patch)
	require.NoError(t, err)
	require.Equal(t, amount, updated.LoanAmount)
	require.Equal(t, "Contacted", updated.Stage)

	got, ok := store.Lead("a")
	require.True(t, ok)
	require.Equal(t, amount, got.LoanAmount)
	require.Equal(t, "FHA", got.LoanType)
}

func TestStore_UpdateLead_UnknownIsNoop(t *testing.T) {
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{})

	name := "Bob"
	updated, err := store.UpdateLead(context.Background(), "ghost", lead.Patch{Name: &name})
	require.NoError(t, err)
	require.Nil(t, updated)
	api.AssertNotCalled(t, "UpdateLead", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_UpdateLead_FailureReverts(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"Contacted": {{ID: "a", Name: "Ann"}},
	})

	name := "Annie"
	api.On("UpdateLead", ctx, "a", mock.Anything).Return(nil, errors.New("500"))
	_, err := store.UpdateLead(ctx, "a", lead.Patch{Name: &name})
	require.ErrorIs(t, err, lead.ErrRemote)

	got, _ := store.Lead("a")
	require.Equal(t, "Ann", got.Name)
}

func TestStore_UpdateLead_ReloadDuringCallWins(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"New Lead": {{ID: "a", Name: "Ann"}},
	})

	api.On("ListLeadsByStage", ctx).Return(map[string][]lead.Lead{
		"Contacted": {{ID: "a", Name: "Ann"}},
	}, nil).Once()
	name := "Annie"
	api.On("UpdateLead", ctx, "a", mock.Anything).
		Run(func(mock.Arguments) { require.NoError(t, store.Load(ctx)) }).
		Return(&lead.Lead{ID: "a", Name: "Annie", Stage: "Contacted"}, nil)

	updated, err := store.UpdateLead(ctx, "a", lead.Patch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Contacted", updated.Stage)

	snap := store.Snapshot()
	require.Empty(t, snap["New Lead"])
	require.Equal(t, []string{"a"}, ids(snap["Contacted"]))
}

func TestStore_MoveLead_ReloadDropsLead(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"New Lead": {{ID: "a", Name: "Ann"}},
	})

	api.On("ListLeadsByStage", ctx).Return(map[string][]lead.Lead{}, nil).Once()
	api.On("MoveLead", ctx, "a", "New Lead", "Closed").
		Run(func(mock.Arguments) { require.NoError(t, store.Load(ctx)) }).
		Return(&lead.Lead{ID: "a", Name: "Ann", Stage: "Closed"}, nil)

	moved, err := store.MoveLead(ctx, "a", "New Lead", "Closed")
	require.NoError(t, err)
	require.Equal(t, "Closed", moved.Stage)

	_, ok := store.Lead("a")
	require.False(t, ok)
	require.Equal(t, 0, store.Metrics().TotalLeads)
}

func TestStore_UpdateLeadTags_Deduplicates(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"New Lead": {{ID: "a", Tags: []string{"old"}}},
	})

	api.On("UpdateTags", ctx, "a", []string{"vip", "hot"}).Return(&lead.Lead{ID: "a", Tags: []string{"vip", "hot"}}, nil)
	updated, err := store.UpdateLeadTags(ctx, "a", []string{"vip", "hot", "vip"})
	require.NoError(t, err)
	require.Equal(t, []string{"vip", "hot"}, updated.Tags)
}

func TestStore_ToggleStageTag_AppliesToEveryLead(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"Contacted": {{ID: "a", Tags: []string{"vip"}}, {ID: "b"}},
		"Closed":    {{ID: "c"}},
	})

	api.On("UpdateTags", ctx, "a", []string{}).Return(&lead.Lead{ID: "a", Tags: []string{}}, nil)
	api.On("UpdateTags", ctx, "b", []string{"vip"}).Return(&lead.Lead{ID: "b", Tags: []string{"vip"}}, nil)

	require.NoError(t, store.ToggleStageTag(ctx, "Contacted", "vip"))

	a, _ := store.Lead("a")
	b, _ := store.Lead("b")
	c, _ := store.Lead("c")
	require.Empty(t, a.Tags)
	require.Equal(t, []string{"vip"}, b.Tags)
	require.Empty(t, c.Tags)
	api.AssertNumberOfCalls(t, "UpdateTags", 2)
}

func TestStore_ToggleStageTag_ReportsFailures(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"Contacted": {{ID: "a"}, {ID: "b"}},
	})

	api.On("UpdateTags", ctx, "a", mock.Anything).Return(&lead.Lead{ID: "a", Tags: []string{"vip"}}, nil)
	api.On("UpdateTags", ctx, "b", mock.Anything).Return(nil, errors.New("429"))

	err := store.ToggleStageTag(ctx, "Contacted", "vip")
	require.ErrorIs(t, err, lead.ErrRemote)

	a, _ := store.Lead("a")
	b, _ := store.Lead("b")
	require.Equal(t, []string{"vip"}, a.Tags)
	require.Empty(t, b.Tags)
}

func TestStore_DeleteLead(t *testing.T) {
	ctx := context.Background()
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"New Lead": {{ID: "a"}, {ID: "b"}, {ID: "c"}},
	})

	api.On("DeleteLead", ctx, "b").Return(errors.New("offline")).Once()
	require.ErrorIs(t, store.DeleteLead(ctx, "b"), lead.ErrRemote)
	require.Equal(t, []string{"a", "b", "c"}, ids(store.Snapshot()["New Lead"]))

	api.On("DeleteLead", ctx, "b").Return(nil).Once()
	require.NoError(t, store.DeleteLead(ctx, "b"))
	require.Equal(t, []string{"a", "c"}, ids(store.Snapshot()["New Lead"]))

	require.NoError(t, store.DeleteLead(ctx, "b"))
}

func TestStore_StageView(t *testing.T) {
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"Contacted": {
			{ID: "old", LoanAmount: 100, CreatedAt: fixedNow.Add(-72 * time.Hour), Tags: []string{"a", "b"}},
			{ID: "new", LoanAmount: 200, CreatedAt: fixedNow.Add(-time.Hour), Tags: []string{"a", "c", "d"}},
			{ID: "touched", CreatedAt: fixedNow.Add(-96 * time.Hour), UpdatedAt: fixedNow.Add(-time.Minute), Tags: []string{"a", "b"}},
		},
	})

	view, err := store.StageView("Contacted")
	require.NoError(t, err)
	require.Equal(t, []string{"touched", "new", "old"}, ids(view.Leads))
	require.Equal(t, 300.0, view.TotalValue)
	require.Len(t, view.TopTags, 3)
	require.Equal(t, lead.TagCount{Tag: "a", Count: 3}, view.TopTags[0])
	require.Equal(t, lead.TagCount{Tag: "b", Count: 2}, view.TopTags[1])
	require.Equal(t, lead.TagCount{Tag: "c", Count: 1}, view.TopTags[2])
	require.Equal(t, 1, view.MoreTags)
	require.Equal(t, 3, view.Metrics.Count)

	_, err = store.StageView("Nope")
	require.ErrorIs(t, err, lead.ErrInvalidStage)
}

func TestStore_StageView_TagsInFirstSeenOrder(t *testing.T) {
	api := &mocks.LeadAPI{}
	store := loadedStore(t, api, map[string][]lead.Lead{
		"Contacted": {
			{ID: "x", CreatedAt: fixedNow.Add(-time.Hour), Tags: []string{"rare"}},
			{ID: "y", CreatedAt: fixedNow.Add(-2 * time.Hour), Tags: []string{"common"}},
			{ID: "z", CreatedAt: fixedNow.Add(-3 * time.Hour), Tags: []string{"common"}},
		},
	})

	view, err := store.StageView("Contacted")
	require.NoError(t, err)
	require.Equal(t, []lead.TagCount{{Tag: "rare", Count: 1}, {Tag: "common", Count: 2}}, view.TopTags)
	require.Zero(t, view.MoreTags)
}

func TestStore_CustomStages(t *testing.T) {
	api := &mocks.LeadAPI{}
	store := newStore(api, lead.WithStages([]string{"Open", "Won"}))
	require.Equal(t, []string{"Open", "Won"}, store.Stages())
	require.True(t, store.ValidStage("Won"))
	require.False(t, store.ValidStage("Closed"))
}
