package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is bumped whenever a table, column or index is added.
// Upgrades are additive only.
const SchemaVersion = 2

// Database handles all database operations for the library
type Database struct {
	db                 *sql.DB
	now                func() time.Time
	cascadeAnnotations bool
}

// Option configures a Database
type Option func(*Database)

// WithClock replaces the clock used for last-read and updated timestamps
func WithClock(now func() time.Time) Option {
	return func(d *Database) {
		d.now = now
	}
}

// WithAnnotationCascade makes DeleteBook also remove the book's annotations,
// highlights and reading stats. Off by default.
func WithAnnotationCascade() Option {
	return func(d *Database) {
		d.cascadeAnnotations = true
	}
}

// NewDatabase opens (creating if needed) the SQLite database at dbPath and
// brings its schema up to SchemaVersion. The caller owns the handle and must Close it.
func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: the engine serializes every operation against the file.
	db.SetMaxOpenConns(1)

	d := &Database{db: db, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Version returns the schema version recorded in the database file
func (d *Database) Version(ctx context.Context) (int, error) {
	var version int
	err := d.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}

var tableDDL = []string{
	// v1
	`CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		cover_ref TEXT NOT NULL DEFAULT '',
		file_ref TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL DEFAULT 0,
		file_hash TEXT NOT NULL DEFAULT '',
		added_at INTEGER NOT NULL,
		last_read_at INTEGER,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		total_pages INTEGER NOT NULL DEFAULT 0,
		genre TEXT NOT NULL DEFAULT '',
		collections TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS progress (
		book_id TEXT PRIMARY KEY,
		current_page INTEGER NOT NULL,
		total_pages INTEGER NOT NULL,
		percentage INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		time_spent INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		page INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,

	// v2
	`CREATE TABLE IF NOT EXISTS annotations (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		page INTEGER NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS highlights (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		page INTEGER NOT NULL,
		text TEXT NOT NULL,
		color TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		book_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS stats (
		book_id TEXT PRIMARY KEY,
		total_time INTEGER NOT NULL DEFAULT 0,
		pages_read INTEGER NOT NULL DEFAULT 0,
		last_read_at INTEGER NOT NULL,
		reading_speed REAL NOT NULL DEFAULT 0
	)`,
}

// columns added to v1 tables after their first release
var columnDDL = []struct {
	table, column, definition string
}{
	{"books", "file_size", "INTEGER NOT NULL DEFAULT 0"},
	{"books", "file_hash", "TEXT NOT NULL DEFAULT ''"},
	{"books", "collections", "TEXT NOT NULL DEFAULT '[]'"},
	{"progress", "time_spent", "INTEGER NOT NULL DEFAULT 0"},
}

// index name -> column, per table
var indexes = map[string]map[string]string{
	"books": {
		"by-lastRead": "last_read_at",
		"by-favorite": "is_favorite",
		"by-hash":     "file_hash",
	},
	"bookmarks":   {"by-book": "book_id"},
	"annotations": {"by-book": "book_id"},
	"highlights":  {"by-book": "book_id"},
}

// migrate creates whatever tables, columns and indexes are missing.
// Every step checks for existence first, so it is safe to re-run.
func (d *Database) migrate(ctx context.Context) error {
	version, err := d.Version(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("%w: file is v%d, build supports v%d", ErrSchemaTooNew, version, SchemaVersion)
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		for _, ddl := range tableDDL {
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		}

		for _, c := range columnDDL {
			exists, err := columnExists(ctx, tx, c.table, c.column)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.definition)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
			}
		}

		for table, byName := range indexes {
			for name, column := range byName {
				stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexIdent(table, name), table, column)
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("create index %s: %w", name, err)
				}
			}
		}

		// PRAGMA does not accept bound parameters
		_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion))
		return err
	})
}

func columnExists(ctx context.Context, q querier, table, column string) (bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// indexIdent turns ("books", "by-lastRead") into idx_books_by_lastread
func indexIdent(table, name string) string {
	return "idx_" + table + "_" + strings.ToLower(strings.ReplaceAll(name, "-", "_"))
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// withTx runs fn in a transaction, rolling back on error
func (d *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func queryOne[T any](ctx context.Context, q querier, scan func(rowScanner) (*T, error), query string, args ...any) (*T, error) {
	v, err := scan(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func queryAll[T any](ctx context.Context, q querier, scan func(rowScanner) (*T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// getAllFromIndex returns every row of table whose indexed column equals value,
// in insertion order
func getAllFromIndex[T any](ctx context.Context, q querier, table, index string, columns []string, value any, scan func(rowScanner) (*T, error)) ([]T, error) {
	column, ok := indexes[table][index]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownIndex, index, table)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY rowid", strings.Join(columns, ", "), table, column)
	return queryAll(ctx, q, scan, query, value)
}

func selectSQL(table string, columns []string, where string) string {
	query := "SELECT " + strings.Join(columns, ", ") + " FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	return query
}

func insertSQL(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
}

// upsertSQL inserts or overwrites every non-key column. The row keeps its rowid,
// so getAll order is unchanged by updates.
func upsertSQL(table, key string, columns []string) string {
	var sets []string
	for _, c := range columns {
		if c == key {
			continue
		}
		sets = append(sets, c+" = excluded."+c)
	}
	return insertSQL(table, columns) + " ON CONFLICT(" + key + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// insert runs an INSERT and translates constraint failures
func insert(ctx context.Context, q querier, table string, columns []string, args ...any) error {
	if _, err := q.ExecContext(ctx, insertSQL(table, columns), args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("add to %s: %w", table, ErrDuplicateKey)
		}
		return fmt.Errorf("add to %s: %w", table, err)
	}
	return nil
}

func upsert(ctx context.Context, q querier, table, key string, columns []string, args ...any) error {
	if _, err := q.ExecContext(ctx, upsertSQL(table, key, columns), args...); err != nil {
		return fmt.Errorf("put to %s: %w", table, err)
	}
	return nil
}

func deleteByKey(ctx context.Context, q querier, table, key string, value any) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+key+" = ?", value); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func bookExists(ctx context.Context, q querier, id string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM books WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// requireBook fails with ErrBookNotFound unless bookID names an existing book
func requireBook(ctx context.Context, q querier, bookID string) error {
	ok, err := bookExists(ctx, q, bookID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBookNotFound, bookID)
	}
	return nil
}

// Timestamps are stored as Unix nanoseconds so a round trip returns the same instant
func toUnixNano(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeIDs(ids []string) (string, error) {
	if len(ids) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(ids)
	return string(data), err
}

func decodeIDs(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}
