package backlog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stacks-cli/internal/model"
	"stacks-cli/internal/refresh"
	"stacks-cli/internal/store"
)

var errBoom = errors.New("boom")

func newTestEngine(t *testing.T, st store.ItemStore, opts EngineOptions) *Engine {
	t.Helper()
	opts.Store = st
	if opts.WorkspaceID == "" {
		opts.WorkspaceID = "ws"
	}
	e := NewEngine(opts)
	t.Cleanup(e.Close)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func seedABC() *store.Memory {
	return store.NewMemory(
		item("A", 1, model.StatusUpNext),
		item("B", 2, model.StatusUpNext),
		item("C", 3, model.StatusInProgress),
	)
}

func storeOrder(t *testing.T, st store.ItemStore) []model.Item {
	t.Helper()
	items, err := st.ListItems(context.Background(), "ws")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	return NewCollection(items, DefaultPartitioner(), nil).Ordered()
}

func assertMatchesStore(t *testing.T, e *Engine, st store.ItemStore) {
	t.Helper()
	want := storeOrder(t, st)
	got := e.Snapshot().Ordered()
	if len(got) != len(want) {
		t.Fatalf("snapshot %v store %v", ids(got), ids(want))
	}
	for i := range want {
		gr, _ := got[i].RankValue()
		wr, _ := want[i].RankValue()
		if got[i].ID != want[i].ID || gr != wr || got[i].Status != want[i].Status {
			t.Fatalf("snapshot diverges at %d: got %s(%d,%s) want %s(%d,%s)",
				i, got[i].ID, gr, got[i].Status, want[i].ID, wr, want[i].Status)
		}
	}
}

func TestEngineUnavailableWorkspaceIsEmpty(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, store.NewMemory(), EngineOptions{WorkspaceID: "gone"})
	if n := e.Snapshot().Len(); n != 0 {
		t.Fatalf("expected empty collection, got %d items", n)
	}
}

func TestEngineLoadError(t *testing.T) {
	t.Parallel()

	st := seedABC()
	st.FailList = func(string) error { return errBoom }
	e := NewEngine(EngineOptions{WorkspaceID: "ws", Store: st})
	defer e.Close()
	if err := e.Load(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestEngineNoopWritesNothing(t *testing.T) {
	t.Parallel()

	st := seedABC()
	e := newTestEngine(t, st, EngineOptions{})
	ctx := context.Background()

	for _, o := range []Outcome{
		e.Drag(ctx, "A", "A"),
		e.Drag(ctx, "A", "missing"),
		e.Do(ctx, ActionMoveToTop, "A"),
		e.Do(ctx, ActionMoveToUpNext, "B"),
		e.Apply(ctx, Plan{Noop: true}),
	} {
		if !o.Noop || o.Err != nil {
			t.Fatalf("expected noop outcome, got %+v", o)
		}
	}
	if _, updates, _ := st.Counts(); updates != 0 {
		t.Fatalf("expected zero writes, got %d", updates)
	}
}

func TestEngineDragAcrossSegments(t *testing.T) {
	t.Parallel()

	st := seedABC()
	hub := refresh.NewHub()
	signals, cancel := hub.Subscribe("ws")
	defer cancel()
	e := newTestEngine(t, st, EngineOptions{Notifier: hub})

	o := e.Drag(context.Background(), "B", "C")
	if o.Err != nil {
		t.Fatalf("Drag: %v", o.Err)
	}
	if o.Writes != 2 || o.Failed != 0 {
		t.Fatalf("outcome: %+v", o)
	}

	a, _ := st.Get("A")
	b, _ := st.Get("B")
	c, _ := st.Get("C")
	if *a.Rank != 1 || a.Version != 0 {
		t.Fatalf("A touched: %+v", a)
	}
	if *c.Rank != 2 || c.Version != o.Seq {
		t.Fatalf("C: rank=%d version=%d", *c.Rank, c.Version)
	}
	if *b.Rank != 3 || b.Status != model.StatusInProgress || b.Version != o.Seq {
		t.Fatalf("B: %+v", b)
	}
	assertMatchesStore(t, e, st)

	select {
	case sig := <-signals:
		if sig.Origin != e.Origin() || sig.Seq != o.Seq {
			t.Fatalf("signal: %+v", sig)
		}
	case <-time.After(time.Second):
		t.Fatalf("no refresh signal")
	}
}

func TestEngineFailedBatchResyncs(t *testing.T) {
	t.Parallel()

	st := seedABC()
	st.FailUpdate = func(id string, _ model.Patch) error {
		if id == "C" {
			return errBoom
		}
		return nil
	}
	e := newTestEngine(t, st, EngineOptions{})

	o := e.Drag(context.Background(), "B", "C")
	var berr *BatchError
	if !errors.As(o.Err, &berr) {
		t.Fatalf("expected BatchError, got %v", o.Err)
	}
	if berr.Failed != 1 || berr.Total != 2 || !errors.Is(o.Err, errBoom) {
		t.Fatalf("batch error: %+v", berr)
	}
	if !o.Resynced {
		t.Fatalf("expected resync after failed batch")
	}
	assertMatchesStore(t, e, st)
}

func TestEngineResyncSupersedesQueuedBatches(t *testing.T) {
	t.Parallel()

	st := seedABC()
	var blocked atomic.Bool
	blocked.Store(true)
	release := make(chan struct{})
	st.FailUpdate = func(string, model.Patch) error {
		if blocked.Load() {
			<-release
			return errBoom
		}
		return nil
	}
	e := newTestEngine(t, st, EngineOptions{})
	ctx := context.Background()

	first := e.DoAsync(ctx, ActionMoveToTop, "C")
	second := e.DoAsync(ctx, ActionMoveToBottom, "A")
	close(release)

	o1 := <-first
	blocked.Store(false)
	o2 := <-second
	if o1.Err == nil || !o1.Resynced {
		t.Fatalf("first: %+v", o1)
	}
	if !errors.Is(o2.Err, ErrSuperseded) || !o2.Superseded {
		t.Fatalf("second: %+v", o2)
	}
	assertMatchesStore(t, e, st)
}

// gatedStore holds one ListItems call until released, outside the memory
// store's lock so other calls go through meanwhile.
type gatedStore struct {
	*store.Memory
	hold    atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(m *store.Memory) *gatedStore {
	return &gatedStore{Memory: m, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedStore) ListItems(ctx context.Context, workspaceID string) ([]model.Item, error) {
	if g.hold.CompareAndSwap(true, false) {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.Memory.ListItems(ctx, workspaceID)
}

// startHeldResync begins a resync and returns once its fetch is parked at the gate.
func startHeldResync(t *testing.T, e *Engine, g *gatedStore) <-chan error {
	t.Helper()
	g.hold.Store(true)
	done := make(chan error, 1)
	go func() { done <- e.Resync(context.Background()) }()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("resync never reached the store")
	}
	return done
}

func TestEngineGestureDuringRefreshResyncIsKept(t *testing.T) {
	t.Parallel()

	st := seedABC()
	g := newGatedStore(st)
	e := newTestEngine(t, g, EngineOptions{})

	resynced := startHeldResync(t, e, g)
	ch := e.DragAsync(context.Background(), "C", "A")
	sameIDs(t, "optimistic", e.Snapshot().Ordered(), "C", "A", "B")

	close(g.release)
	if err := <-resynced; err != nil {
		t.Fatalf("Resync: %v", err)
	}
	o := <-ch
	if o.Err != nil || o.Superseded || o.Writes == 0 {
		t.Fatalf("outcome: %+v", o)
	}
	sameIDs(t, "local", e.Snapshot().Ordered(), "C", "A", "B")
	sameIDs(t, "store", storeOrder(t, st), "C", "A", "B")
	assertMatchesStore(t, e, st)
}

func TestEngineQueuedGestureOnVanishedItemWritesNothing(t *testing.T) {
	t.Parallel()

	st := seedABC()
	g := newGatedStore(st)
	e := newTestEngine(t, g, EngineOptions{})

	resynced := startHeldResync(t, e, g)
	if err := st.DeleteItem(context.Background(), "C"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	_, updatesBefore, _ := st.Counts()
	ch := e.DragAsync(context.Background(), "C", "A")

	close(g.release)
	if err := <-resynced; err != nil {
		t.Fatalf("Resync: %v", err)
	}
	o := <-ch
	if o.Err != nil || !o.Noop || o.Writes != 0 {
		t.Fatalf("outcome: %+v", o)
	}
	if _, updates, _ := st.Counts(); updates != updatesBefore {
		t.Fatalf("expected no writes, store saw %d", updates-updatesBefore)
	}
	sameIDs(t, "local", e.Snapshot().Ordered(), "A", "B")
}

func TestEngineConcurrentGesturesKeepSeqOrder(t *testing.T) {
	t.Parallel()

	var items []model.Item
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		items = append(items, item(id, i+1, model.StatusUpNext))
	}
	st := store.NewMemory(items...)
	e := newTestEngine(t, st, EngineOptions{})
	ctx := context.Background()

	var wg sync.WaitGroup
	outs := make(chan Outcome, 16)
	for i := range 16 {
		id := items[i%len(items)].ID
		wg.Add(1)
		go func() {
			defer wg.Done()
			outs <- <-e.DoAsync(ctx, ActionMoveToBottom, id)
		}()
	}
	wg.Wait()
	close(outs)
	for o := range outs {
		if o.Err != nil || o.Resynced {
			t.Fatalf("outcome: %+v", o)
		}
	}
	assertMatchesStore(t, e, st)
}

func TestEngineDelete(t *testing.T) {
	t.Parallel()

	st := seedABC()
	e := newTestEngine(t, st, EngineOptions{})

	o := e.Delete(context.Background(), "B")
	if o.Err != nil {
		t.Fatalf("Delete: %v", o.Err)
	}
	if _, ok := st.Get("B"); ok {
		t.Fatalf("B still stored")
	}
	snap := e.Snapshot()
	sameIDs(t, "after delete", snap.Ordered(), "A", "C")
	if r := ranks(snap.Ordered()); r["A"] != 1 || r["C"] != 3 {
		t.Fatalf("ranks changed: %v", r)
	}
	if _, updates, _ := st.Counts(); updates != 0 {
		t.Fatalf("delete issued %d updates", updates)
	}

	if o := e.Delete(context.Background(), "B"); !errors.As(o.Err, &NotFoundError{}) {
		t.Fatalf("expected NotFoundError, got %v", o.Err)
	}
}

func TestEngineDeleteFailureRestoresPosition(t *testing.T) {
	t.Parallel()

	st := seedABC()
	st.FailDelete = func(string) error { return errBoom }
	var changes atomic.Int32
	e := newTestEngine(t, st, EngineOptions{OnChange: func(Collection) { changes.Add(1) }})
	before := changes.Load()

	o := e.Delete(context.Background(), "B")
	if !errors.Is(o.Err, errBoom) || o.Failed != 1 {
		t.Fatalf("outcome: %+v", o)
	}
	sameIDs(t, "restored", e.Snapshot().Ordered(), "A", "B", "C")
	if got := changes.Load() - before; got != 2 {
		t.Fatalf("expected remove and restore notifications, got %d", got)
	}
}

func TestEngineSeqAboveObservedVersions(t *testing.T) {
	t.Parallel()

	future := time.Now().Add(24 * time.Hour).UnixMicro()
	a := item("A", 1, model.StatusUpNext)
	a.Version = future
	b := item("B", 2, model.StatusUpNext)
	st := store.NewMemory(a, b)
	e := newTestEngine(t, st, EngineOptions{})

	o := e.Drag(context.Background(), "B", "A")
	if o.Err != nil {
		t.Fatalf("Drag: %v", o.Err)
	}
	if o.Seq <= future {
		t.Fatalf("seq %d not above observed version %d", o.Seq, future)
	}
}

func TestEngineKeyStrategySingleWrite(t *testing.T) {
	t.Parallel()

	st := store.NewMemory(
		keyed("a", "b", model.StatusUpNext),
		keyed("b", "d", model.StatusUpNext),
		keyed("c", "f", model.StatusUpNext),
	)
	e := newTestEngine(t, st, EngineOptions{Assigner: KeyAssigner{}})

	o := e.Drag(context.Background(), "c", "a")
	if o.Err != nil || o.Writes != 1 {
		t.Fatalf("outcome: %+v", o)
	}
	sameIDs(t, "order", e.Snapshot().Ordered(), "c", "a", "b")
	if err := e.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	sameIDs(t, "after resync", e.Snapshot().Ordered(), "c", "a", "b")
}

func TestEngineSerializesBatches(t *testing.T) {
	t.Parallel()

	var items []model.Item
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		items = append(items, item(id, i+1, model.StatusUpNext))
	}
	st := store.NewMemory(items...)
	e := newTestEngine(t, st, EngineOptions{})
	ctx := context.Background()

	var outs []<-chan Outcome
	for _, id := range []string{"h", "c", "a", "f", "b", "g"} {
		outs = append(outs, e.DoAsync(ctx, ActionMoveToTop, id))
	}
	var last int64
	for _, ch := range outs {
		o := <-ch
		if o.Err != nil {
			t.Fatalf("outcome: %+v", o)
		}
		if o.Seq <= last {
			t.Fatalf("batch seq %d not above %d", o.Seq, last)
		}
		last = o.Seq
	}
	sameIDs(t, "order", e.Snapshot().Ordered(), "g", "b", "f", "a", "c", "h", "d", "e")
	assertMatchesStore(t, e, st)
}

func TestEngineFollow(t *testing.T) {
	t.Parallel()

	st := seedABC()
	hub := refresh.NewHub()
	writer := newTestEngine(t, st, EngineOptions{Notifier: hub})
	changed := make(chan Collection, 8)
	reader := newTestEngine(t, st, EngineOptions{OnChange: func(c Collection) { changed <- c }})
	<-changed

	signals, cancel := hub.Subscribe("ws")
	defer cancel()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	done := make(chan error, 1)
	go func() { done <- reader.Follow(ctx, signals) }()

	if o := writer.Drag(context.Background(), "C", "A"); o.Err != nil {
		t.Fatalf("Drag: %v", o.Err)
	}
	select {
	case c := <-changed:
		sameIDs(t, "reader", c.Ordered(), "C", "A", "B")
	case <-time.After(2 * time.Second):
		t.Fatalf("reader did not resync")
	}

	stop()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Follow returned %v", err)
	}
}

func TestEngineClosed(t *testing.T) {
	t.Parallel()

	e := NewEngine(EngineOptions{WorkspaceID: "ws", Store: seedABC()})
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.Close()
	if o := e.Drag(context.Background(), "C", "A"); !errors.Is(o.Err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %+v", o)
	}
	if err := e.Resync(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
