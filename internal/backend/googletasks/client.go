// Package googletasks implements store.Store over a single Google Tasks list.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todo/internal/auth"
	"todo/internal/config"
	"todo/internal/store"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls when settings carry none.
	APITimeout = 5 * time.Second
)

// Client implements store.Store using the Google Tasks API.
// Only open tasks are part of the collection.
type Client struct {
	svc     *tasks.Service
	listID  string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	httpClient, err := auth.HTTPClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	c := newClient(svc, cfg.Settings.GoogleTasks.ListID, cfg.Logger)
	if cfg.Settings.Timeout > 0 {
		c.timeout = cfg.Settings.Timeout
	}
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and endpoint (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint, listID string) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}
	return newClient(svc, listID, nil), nil
}

func newClient(svc *tasks.Service, listID string, logger *slog.Logger) *Client {
	if listID == "" {
		listID = DefaultListID
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		svc:     svc,
		listID:  listID,
		timeout: APITimeout,
		logger:  logger.With("backend", "googletasks", "list", listID),
	}
}

// ListAll returns the open tasks of the list in API order.
func (c *Client) ListAll(ctx context.Context) ([]store.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result []store.Task
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(false).
		ShowDeleted(false).
		ShowHidden(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, task := range resp.Items {
				result = append(result, store.Task{ID: task.Id, Title: task.Title})
			}
			return nil
		})
	if err != nil {
		c.logger.Debug("list failed", "error", err)
		return nil, &store.FetchError{Err: wrapError(err)}
	}

	c.logger.Debug("listed tasks", "count", len(result))
	return result, nil
}

// Create creates a new task in the list and returns its id.
func (c *Client) Create(ctx context.Context, title string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	task, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{Title: title}).Context(ctx).Do()
	if err != nil {
		c.logger.Debug("insert failed", "error", err)
		return "", &store.WriteError{Op: store.OpCreate, Err: wrapError(err)}
	}

	c.logger.Debug("inserted task", "id", task.Id)
	return task.Id, nil
}

// Update changes the title of a task.
func (c *Client) Update(ctx context.Context, id, title string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.svc.Tasks.Patch(c.listID, id, &tasks.Task{Title: title}).Context(ctx).Do()
	if err != nil {
		c.logger.Debug("patch failed", "id", id, "error", err)
		return writeError(store.OpUpdate, id, err)
	}
	return nil
}

// Remove deletes a task.
func (c *Client) Remove(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do()
	if err != nil {
		c.logger.Debug("delete failed", "id", id, "error", err)
		return writeError(store.OpRemove, id, err)
	}
	return nil
}

func writeError(op, id string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return &store.NotFoundError{ID: id}
	}
	return &store.WriteError{Op: op, ID: id, Err: wrapError(err)}
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	// Check for timeout
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: todo login)")
		case http.StatusNotFound:
			return fmt.Errorf("not found")
		}
	}

	return err
}
