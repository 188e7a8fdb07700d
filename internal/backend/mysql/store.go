// Package mysql implements store.Store over a MySQL table with one title column.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"todo/internal/config"
	"todo/internal/store"
)

// DefaultTimeout is used when settings carry no timeout.
const DefaultTimeout = 10 * time.Second

// Store keeps tasks in a table with an auto-increment id and a `todo` column.
type Store struct {
	db      *sql.DB
	table   string
	timeout time.Duration
	logger  *slog.Logger
}

// Options configures a Store built over an existing handle.
type Options struct {
	Table   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// New connects using the configured DSN and creates the table if missing.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	s := cfg.Settings.MySQL
	if s.DSN == "" {
		return nil, fmt.Errorf("mysql.dsn %w (set it in %s or TODO_MYSQL_DSN)", config.ErrMissingSetting, cfg.SettingsPath())
	}
	dsn, err := PrepareDSN(s.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	st := newStore(db, Options{
		Table:   s.Table,
		Timeout: cfg.Settings.Timeout,
		Logger:  cfg.Logger,
	})

	pingCtx, cancel := context.WithTimeout(ctx, st.timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}
	if err := st.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

// PrepareDSN validates dsn and turns on the options the store relies on.
// ClientFoundRows makes an UPDATE that leaves the title unchanged still count
// the matched row, so zero affected rows always means the id is gone.
func PrepareDSN(dsn string) (string, error) {
	c, err := driver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql.dsn: %w", err)
	}
	c.ClientFoundRows = true
	c.ParseTime = true
	return c.FormatDSN(), nil
}

// NewWithDB wraps an open handle without pinging it or creating the table (for testing).
func NewWithDB(db *sql.DB, o Options) *Store {
	return newStore(db, o)
}

func newStore(db *sql.DB, o Options) *Store {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		db:      db,
		table:   o.Table,
		timeout: o.Timeout,
		logger:  o.Logger.With("backend", "mysql", "table", o.Table),
	}
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (\n"+
		"    id BIGINT PRIMARY KEY AUTO_INCREMENT,\n"+
		"    todo VARCHAR(1024) NOT NULL\n"+
		")", s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// ListAll returns all rows ordered by id.
func (s *Store) ListAll(ctx context.Context) ([]store.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, todo FROM `%s` ORDER BY id", s.table))
	if err != nil {
		return nil, &store.FetchError{Err: err}
	}
	defer rows.Close()

	var result []store.Task
	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, &store.FetchError{Err: err}
		}
		result = append(result, store.Task{ID: strconv.FormatInt(id, 10), Title: title})
	}
	if err := rows.Err(); err != nil {
		return nil, &store.FetchError{Err: err}
	}

	s.logger.Debug("listed rows", "count", len(result))
	return result, nil
}

// Create inserts a row and returns its auto-increment id.
func (s *Store) Create(ctx context.Context, title string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO `%s` (todo) VALUES (?)", s.table), title)
	if err != nil {
		return "", &store.WriteError{Op: store.OpCreate, Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", &store.WriteError{Op: store.OpCreate, Err: err}
	}

	s.logger.Debug("inserted row", "id", id)
	return strconv.FormatInt(id, 10), nil
}

// Update sets the title of the row with id.
func (s *Store) Update(ctx context.Context, id, title string) error {
	return s.exec(ctx, store.OpUpdate, id,
		fmt.Sprintf("UPDATE `%s` SET todo = ? WHERE id = ?", s.table), title)
}

// Remove deletes the row with id.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.exec(ctx, store.OpRemove, id,
		fmt.Sprintf("DELETE FROM `%s` WHERE id = ?", s.table))
}

// exec runs a single-row statement keyed by id, appending id as the last argument.
func (s *Store) exec(ctx context.Context, op, id, query string, args ...any) error {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return &store.NotFoundError{ID: id}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, append(args, key)...)
	if err != nil {
		return &store.WriteError{Op: op, ID: id, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &store.WriteError{Op: op, ID: id, Err: err}
	}
	if n == 0 {
		return &store.NotFoundError{ID: id}
	}

	s.logger.Debug("row changed", "op", op, "id", id)
	return nil
}
