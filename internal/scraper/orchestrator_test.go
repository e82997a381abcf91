package scraper

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"
	"royale-tracker/internal/api"
	"royale-tracker/internal/cache"
	"royale-tracker/internal/config"
	"royale-tracker/internal/domain"
	"royale-tracker/internal/normalizer"
	"royale-tracker/internal/ratelimit"
	"royale-tracker/internal/retry"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu      sync.Mutex
	battles map[string][]api.RawBattle
	errs    map[string]error
	block   map[string]bool
	calls   map[string]int
}

func (c *fakeClient) GetBattleLog(ctx context.Context, tag string) ([]api.RawBattle, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[tag]++
	blocked := c.block[tag]
	err := c.errs[tag]
	battles := c.battles[tag]
	c.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, &api.NetworkError{Err: ctx.Err()}
	}
	if err != nil {
		return nil, err
	}
	return battles, nil
}

type fakeBattleWriter struct {
	mu      sync.Mutex
	records []domain.BattleRecord
}

func (w *fakeBattleWriter) InsertBatch(ctx context.Context, records []domain.BattleRecord) (domain.InsertResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, records...)
	return domain.InsertResult{Inserted: len(records)}, nil
}

type fakePlayerSource struct {
	tags  []string
	mu    sync.Mutex
	names map[string]string
}

func (s *fakePlayerSource) GetActiveTags(ctx context.Context) ([]string, error) {
	return s.tags, nil
}

func (s *fakePlayerSource) UpdateName(ctx context.Context, tag, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.names == nil {
		s.names = map[string]string{}
	}
	s.names[tag] = name
	return nil
}

type fakeCatalog struct {
	mu   sync.Mutex
	seen []string
}

func (c *fakeCatalog) UpsertSeen(ctx context.Context, names []string, seenAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, names...)
	return nil
}

func (c *fakeCatalog) List(ctx context.Context) ([]domain.GameMode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	modes := make([]domain.GameMode, 0, len(c.seen))
	for _, name := range c.seen {
		modes = append(modes, domain.GameMode{Name: name})
	}
	return modes, nil
}

type memStore struct {
	mu       sync.Mutex
	values   map[string]string
	counters map[string]int64
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}, counters: map[string]int64{}}
}

func (s *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.values[key]
	return raw, ok, nil
}

func (s *memStore) SetEx(ctx context.Context, key, payload string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = payload
	return nil
}

func (s *memStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	s.values[key] = strconv.FormatInt(s.counters[key], 10)
	return s.counters[key], nil
}

func (s *memStore) versionOf(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}

func testBattle(mode string) api.RawBattle {
	b := api.RawBattle{BattleTime: "20250801T191245.000Z"}
	b.GameMode.Name = mode
	b.Arena.Name = "Legendary Arena"
	b.Team = []api.RawParticipant{{
		Tag: "#PLAYER1", Name: "Morten", Crowns: 2,
		Cards: []api.RawCard{{ID: 1, Name: "Knight", Rarity: "common", Level: 14}},
	}}
	b.Opponent = []api.RawParticipant{{
		Tag: "#OPPONENT1", Crowns: 0,
		Cards: []api.RawCard{{ID: 2, Name: "Golem", Rarity: "epic", Level: 9}},
	}}
	return b
}

func newTestOrchestrator(client BattleLogClient, players PlayerSource) (*Orchestrator, *fakeBattleWriter, *fakeCatalog, *memStore) {
	cfg := &config.Config{
		RequestsPerSecond: 1000,
		MaxRetries:        1,
		BaseBackoff:       time.Millisecond,
		CycleDuration:     time.Millisecond,
	}
	writer := &fakeBattleWriter{}
	catalog := &fakeCatalog{}
	store := newMemStore()

	orch := NewOrchestrator(
		cfg,
		client,
		ratelimit.New(cfg.RequestsPerSecond),
		retry.NewController(cfg.MaxRetries, cfg.BaseBackoff, zerolog.Nop()),
		normalizer.New(zerolog.Nop()),
		writer,
		players,
		catalog,
		cache.NewLayer(store, zerolog.Nop()),
		zerolog.Nop(),
	)
	return orch, writer, catalog, store
}

func TestRunCycleIngestsAllPlayers(t *testing.T) {
	client := &fakeClient{battles: map[string][]api.RawBattle{
		"#PLAYER1": {testBattle("Ladder")},
		"#PLAYER2": {testBattle("Duel")},
	}}
	players := &fakePlayerSource{tags: []string{"#PLAYER1", "#PLAYER2"}}

	orch, writer, catalog, store := newTestOrchestrator(client, players)
	require.NoError(t, orch.RunCycle(context.Background()))

	assert.Len(t, writer.records, 2)
	assert.ElementsMatch(t, []string{"Ladder", "Duel"}, catalog.seen)
	assert.Equal(t, int64(1), store.versionOf("cache:version"))
	assert.Equal(t, "Morten", players.names["#PLAYER1"])
}

func TestRunCyclePreWarmsCatalogBeforeVersionBump(t *testing.T) {
	client := &fakeClient{battles: map[string][]api.RawBattle{
		"#PLAYER1": {testBattle("Ladder")},
	}}
	players := &fakePlayerSource{tags: []string{"#PLAYER1"}}

	orch, _, _, store := newTestOrchestrator(client, players)
	layer := cache.NewLayer(store, zerolog.Nop())

	require.NoError(t, orch.RunCycle(context.Background()))

	// catalog was written ahead of the bump and is now current
	var modes []string
	require.True(t, layer.Get(context.Background(), "crApi", "gameModes", nil, &modes))
	assert.Equal(t, []string{"Ladder"}, modes)
}

func TestRunCycleMaintenanceAbortsSiblings(t *testing.T) {
	client := &fakeClient{
		errs:  map[string]error{"#PLAYER1": api.ErrMaintenance},
		block: map[string]bool{"#PLAYER2": true},
	}
	players := &fakePlayerSource{tags: []string{"#PLAYER1", "#PLAYER2"}}

	orch, writer, _, store := newTestOrchestrator(client, players)

	done := make(chan error, 1)
	go func() { done <- orch.RunCycle(context.Background()) }()

	select {
	case err := <-done:
		// maintenance is not a cycle error; it reschedules silently
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cycle did not abort after maintenance signal")
	}

	assert.Empty(t, writer.records)
	// no catalog refresh and no version bump on an aborted cycle
	assert.Equal(t, int64(0), store.versionOf("cache:version"))
}

func TestRunCyclePermanentErrorSkipsItemOnly(t *testing.T) {
	client := &fakeClient{
		battles: map[string][]api.RawBattle{"#PLAYER2": {testBattle("Ladder")}},
		errs:    map[string]error{"#PLAYER1": &api.StatusError{StatusCode: 404}},
	}
	players := &fakePlayerSource{tags: []string{"#PLAYER1", "#PLAYER2"}}

	orch, writer, _, store := newTestOrchestrator(client, players)
	require.NoError(t, orch.RunCycle(context.Background()))

	assert.Len(t, writer.records, 1)
	assert.Equal(t, int64(1), store.versionOf("cache:version"))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	client := &fakeClient{}
	players := &fakePlayerSource{}
	orch, _, _, _ := newTestOrchestrator(client, players)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		orch.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRunCycleTransientErrorIsRetried(t *testing.T) {
	client := &fakeClient{errs: map[string]error{"#PLAYER1": &api.StatusError{StatusCode: 503}}}
	players := &fakePlayerSource{tags: []string{"#PLAYER1"}}

	orch, writer, _, _ := newTestOrchestrator(client, players)
	require.NoError(t, orch.RunCycle(context.Background()))

	// initial attempt plus one retry (MaxRetries=1), then skipped
	assert.Equal(t, 2, client.calls["#PLAYER1"])
	assert.Empty(t, writer.records)
}

func TestModeSetDeduplicates(t *testing.T) {
	set := newModeSet()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set.Add("Ladder")
			set.Add("Duel")
			set.Add("")
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []string{"Ladder", "Duel"}, set.Values())
}
