// Package remote is an ItemStore that talks to a stacks server over HTTP+JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"stacks-cli/internal/model"
	"stacks-cli/internal/store"
)

const defaultTimeout = 15 * time.Second

type Config struct {
	BaseURL string
	// Timeout bounds each request (default 15s). Ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     log.FieldLogger
}

type Client struct {
	baseURL string
	client  *http.Client
	logger  log.FieldLogger
}

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("remote: base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{baseURL: base, client: hc, logger: logger}, nil
}

// ListItems fetches stories and tasks in parallel and merges them.
func (c *Client) ListItems(ctx context.Context, workspaceID string) ([]model.Item, error) {
	var stories, tasks []model.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stories, err = c.listKind(gctx, workspaceID, "stories", model.KindStory)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = c.listKind(gctx, workspaceID, "tasks", model.KindTask)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(stories, tasks...), nil
}

func (c *Client) listKind(ctx context.Context, workspaceID, path string, kind model.Kind) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, "/api/workspaces/"+url.PathEscape(workspaceID)+"/"+path, nil, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Kind = kind
		if items[i].WorkspaceID == "" {
			items[i].WorkspaceID = workspaceID
		}
		items[i] = items[i].WithImplicitTags()
	}
	return items, nil
}

func (c *Client) UpdateItem(ctx context.Context, id string, p model.Patch) error {
	return c.do(ctx, http.MethodPatch, "/api/items/"+url.PathEscape(id), p, nil)
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreateItem(ctx context.Context, it model.Item) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, http.MethodPost, "/api/workspaces/"+url.PathEscape(it.WorkspaceID)+"/items", it, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.WithFields(log.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).String(),
	}).Debug("remote request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	var eb ErrorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}
	var base error
	switch resp.StatusCode {
	case http.StatusNotFound:
		base = store.ErrNotFound
	case http.StatusConflict:
		base = store.ErrStaleWrite
	case http.StatusServiceUnavailable:
		base = store.ErrWorkspaceUnavailable
	default:
		return fmt.Errorf("remote: unexpected status %d: %s", resp.StatusCode, msg)
	}
	if msg == "" || msg == base.Error() {
		return base
	}
	return fmt.Errorf("%w: %s", base, msg)
}
