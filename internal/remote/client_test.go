package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"stacks-cli/internal/backlog"
	"stacks-cli/internal/model"
	"stacks-cli/internal/store"
	"stacks-cli/internal/web"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func quiet() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func newServer(t *testing.T, st store.ItemStore) *Client {
	t.Helper()
	srv := httptest.NewServer(web.New(web.Options{Store: st, Logger: quiet()}))
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/", Logger: quiet()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func abc() *store.Memory {
	mk := func(id string, kind model.Kind, rank int, status model.Status) model.Item {
		it := model.Item{ID: id, WorkspaceID: "ws", Kind: kind, Title: id, Priority: model.PriorityMedium, Status: status, Rank: model.IntPtr(rank), CreatedAt: t0}
		if kind == model.KindTask {
			it.TaskSubtype = model.SubtypeTask
		}
		return it
	}
	return store.NewMemory(
		mk("A", model.KindStory, 1, model.StatusUpNext),
		mk("B", model.KindTask, 2, model.StatusUpNext),
		mk("C", model.KindStory, 3, model.StatusInProgress),
	)
}

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()

	st := abc()
	c := newServer(t, st)
	ctx := context.Background()

	items, err := c.ListItems(ctx, "ws")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("listed %d items", len(items))
	}
	kinds := map[string]model.Kind{}
	for _, it := range items {
		kinds[it.ID] = it.Kind
	}
	if kinds["B"] != model.KindTask || kinds["A"] != model.KindStory {
		t.Fatalf("kinds: %v", kinds)
	}

	if err := c.UpdateItem(ctx, "A", model.Patch{Rank: model.IntPtr(9), BatchSeq: 5}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if a, _ := st.Get("A"); *a.Rank != 9 || a.Version != 5 {
		t.Fatalf("A: %+v", a)
	}

	created, err := c.CreateItem(ctx, model.Item{WorkspaceID: "ws", Kind: model.KindStory, Title: "Fresh"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if created.ID == "" || created.Rank != nil {
		t.Fatalf("created: %+v", created)
	}
	if err := c.DeleteItem(ctx, created.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
}

func TestClientErrorMapping(t *testing.T) {
	t.Parallel()

	c := newServer(t, abc())
	ctx := context.Background()

	if _, err := c.ListItems(ctx, "elsewhere"); !errors.Is(err, store.ErrWorkspaceUnavailable) {
		t.Fatalf("expected ErrWorkspaceUnavailable, got %v", err)
	}
	if err := c.UpdateItem(ctx, "nope", model.Patch{Rank: model.IntPtr(1)}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := c.UpdateItem(ctx, "A", model.Patch{Rank: model.IntPtr(1), BatchSeq: 7}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if err := c.UpdateItem(ctx, "A", model.Patch{Rank: model.IntPtr(2), BatchSeq: 7}); !errors.Is(err, store.ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite, got %v", err)
	}
	if err := c.DeleteItem(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientUnexpectedStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, Logger: quiet()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	err = c.DeleteItem(context.Background(), "x")
	if err == nil || errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientListTagsBugTasks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/workspaces/ws/stories":
			_, _ = io.WriteString(w, `[{"id":"story-1","title":"S","priority":"medium","status":"todo"}]`)
		case "/api/workspaces/ws/tasks":
			_, _ = io.WriteString(w, `[{"id":"task-1","title":"Crash","priority":"high","status":"todo","taskSubtype":"bug","tags":["ui"]}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, Logger: quiet()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	items, err := c.ListItems(context.Background(), "ws")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	byID := map[string]model.Item{}
	for _, it := range items {
		byID[it.ID] = it
	}
	if task := byID["task-1"]; task.Kind != model.KindTask || !task.HasTag(model.BugTag) || !task.HasTag("ui") {
		t.Fatalf("bug task: %+v", task)
	}
	if story := byID["story-1"]; story.Kind != model.KindStory || story.HasTag(model.BugTag) || story.WorkspaceID != "ws" {
		t.Fatalf("story: %+v", story)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "  ", "not a url"} {
		if _, err := NewClient(Config{BaseURL: u}); err == nil {
			t.Fatalf("NewClient(%q) succeeded", u)
		}
	}
}

func TestEngineOverHTTP(t *testing.T) {
	t.Parallel()

	st := abc()
	c := newServer(t, st)
	e := backlog.NewEngine(backlog.EngineOptions{WorkspaceID: "ws", Store: c, Logger: quiet()})
	defer e.Close()
	ctx := context.Background()
	if err := e.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	o := e.Drag(ctx, "B", "C")
	if o.Err != nil || o.Writes != 2 {
		t.Fatalf("outcome: %+v", o)
	}
	b, _ := st.Get("B")
	if b.Status != model.StatusInProgress || *b.Rank != 3 {
		t.Fatalf("B: %+v", b)
	}

	missing := backlog.NewEngine(backlog.EngineOptions{WorkspaceID: "gone", Store: c, Logger: quiet()})
	defer missing.Close()
	if err := missing.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if missing.Snapshot().Len() != 0 {
		t.Fatalf("expected empty snapshot")
	}
}
