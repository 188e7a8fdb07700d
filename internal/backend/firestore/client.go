// Package firestore implements store.Store over a Cloud Firestore collection
// using the Firestore REST API.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	fs "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"todo/internal/auth"
	"todo/internal/config"
	"todo/internal/store"
)

const (
	// TitleField is the single document field holding the task title.
	TitleField = "todo"

	// PageSize is the number of documents requested per list page.
	PageSize = 300

	// DefaultTimeout is used when settings carry no timeout.
	DefaultTimeout = 10 * time.Second
)

// Options identify the collection a Client works on.
type Options struct {
	ProjectID  string
	Database   string
	Collection string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client implements store.Store over one Firestore collection.
type Client struct {
	svc        *fs.Service
	parent     string // projects/{p}/databases/{d}/documents
	collection string
	timeout    time.Duration
	logger     *slog.Logger
}

// New creates a Firestore client from settings.
// Credentials come from, in order: the emulator endpoint (unauthenticated),
// a service account file, or the OAuth token stored by `todo login`.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	s := cfg.Settings.Firestore
	if s.ProjectID == "" {
		return nil, fmt.Errorf("firestore.project_id %w (set it in %s or TODO_FIRESTORE_PROJECT_ID)", config.ErrMissingSetting, cfg.SettingsPath())
	}

	var opts []option.ClientOption
	switch {
	case s.Endpoint != "":
		opts = append(opts, option.WithEndpoint(s.Endpoint), option.WithoutAuthentication())
	case s.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(s.CredentialsFile), option.WithScopes(auth.DatastoreScope))
	default:
		httpClient, err := auth.HTTPClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	svc, err := fs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore service: %w", err)
	}

	return newClient(svc, Options{
		ProjectID:  s.ProjectID,
		Database:   s.Database,
		Collection: s.Collection,
		Timeout:    cfg.Settings.Timeout,
		Logger:     cfg.Logger,
	}), nil
}

// NewWithHTTPClient creates a client against a custom endpoint and HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string, o Options) (*Client, error) {
	svc, err := fs.NewService(ctx, option.WithHTTPClient(httpClient), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}
	return newClient(svc, o), nil
}

func newClient(svc *fs.Service, o Options) *Client {
	if o.Database == "" {
		o.Database = "(default)"
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		svc:        svc,
		parent:     fmt.Sprintf("projects/%s/databases/%s/documents", o.ProjectID, o.Database),
		collection: o.Collection,
		timeout:    o.Timeout,
		logger:     o.Logger.With("backend", "firestore", "collection", o.Collection),
	}
}

// docName returns the full resource name of the document with id.
func (c *Client) docName(id string) string {
	return c.parent + "/" + c.collection + "/" + id
}

// ListAll returns all tasks in the collection in store order.
func (c *Client) ListAll(ctx context.Context) ([]store.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result []store.Task
	err := c.svc.Projects.Databases.Documents.List(c.parent, c.collection).
		PageSize(PageSize).
		Pages(ctx, func(resp *fs.ListDocumentsResponse) error {
			for _, doc := range resp.Documents {
				result = append(result, toTask(doc))
			}
			return nil
		})
	if err != nil {
		c.logger.Debug("list failed", "error", err)
		return nil, &store.FetchError{Err: wrapError(err)}
	}

	c.logger.Debug("listed documents", "count", len(result))
	return result, nil
}

// Create adds a document with a store-assigned id.
func (c *Client) Create(ctx context.Context, title string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	doc, err := c.svc.Projects.Databases.Documents.
		CreateDocument(c.parent, c.collection, titleDocument(title)).
		Context(ctx).
		Do()
	if err != nil {
		c.logger.Debug("create failed", "error", err)
		return "", &store.WriteError{Op: store.OpCreate, Err: wrapError(err)}
	}

	id := documentID(doc.Name)
	c.logger.Debug("created document", "id", id)
	return id, nil
}

// Update overwrites the title field of an existing document.
func (c *Client) Update(ctx context.Context, id, title string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.svc.Projects.Databases.Documents.
		Patch(c.docName(id), titleDocument(title)).
		UpdateMaskFieldPaths(TitleField).
		CurrentDocumentExists(true).
		Context(ctx).
		Do()
	if err != nil {
		c.logger.Debug("update failed", "id", id, "error", err)
		return writeError(store.OpUpdate, id, err)
	}

	c.logger.Debug("updated document", "id", id)
	return nil
}

// Remove deletes a document. Deleting a missing document is a NotFoundError.
func (c *Client) Remove(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.svc.Projects.Databases.Documents.
		Delete(c.docName(id)).
		CurrentDocumentExists(true).
		Context(ctx).
		Do()
	if err != nil {
		c.logger.Debug("delete failed", "id", id, "error", err)
		return writeError(store.OpRemove, id, err)
	}

	c.logger.Debug("deleted document", "id", id)
	return nil
}

func titleDocument(title string) *fs.Document {
	return &fs.Document{
		Fields: map[string]fs.Value{
			TitleField: {StringValue: title},
		},
	}
}

func toTask(doc *fs.Document) store.Task {
	t := store.Task{ID: documentID(doc.Name)}
	if v, ok := doc.Fields[TitleField]; ok {
		t.Title = v.StringValue
	}
	return t
}

// documentID returns the last path segment of a document resource name.
func documentID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func writeError(op, id string, err error) error {
	if isStatus(err, http.StatusNotFound) {
		return &store.NotFoundError{ID: id}
	}
	return &store.WriteError{Op: op, ID: id, Err: wrapError(err)}
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: todo login): %w", err)
		case http.StatusNotFound:
			return fmt.Errorf("not found: %w", err)
		}
	}

	return err
}
