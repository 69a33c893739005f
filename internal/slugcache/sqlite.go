package slugcache

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/alvarorichard/goanime-resolver/internal/util"
	"github.com/pkg/errors"
	"github.com/samber/mo"
)

const (
	maxOpenConns = 5
	maxIdleConns = 2
)

// SQLite persists slugs across restarts. Reads and writes go through
// prepared statements; a row holds the last value written for a key.
type SQLite struct {
	db       *sql.DB
	upsertPS *sql.Stmt
	getPS    *sql.Stmt
	countPS  *sql.Stmt
}

// OpenSQLite opens (creating if needed) the cache database at dbPath
func OpenSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}

	db, err := sql.Open(driverName, dsn(dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cache database")
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := initializeDatabase(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLite{db: db}
	if err := s.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func initializeDatabase(db *sql.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS provider_slugs (
		origin     TEXT    NOT NULL,
		title      TEXT    NOT NULL,
		slug       TEXT    NOT NULL,
		stored_at  INTEGER NOT NULL,
		PRIMARY KEY (origin, title)
	);`

	if _, err := db.Exec(schema); err != nil {
		return errors.Wrap(err, "schema creation failed")
	}
	return nil
}

func (s *SQLite) prepareStatements() error {
	var err error

	s.upsertPS, err = s.db.Prepare(`INSERT INTO provider_slugs (origin, title, slug, stored_at)
	VALUES (?,?,?,?)
	ON CONFLICT(origin, title) DO UPDATE SET
		slug = excluded.slug,
		stored_at = excluded.stored_at`)
	if err != nil {
		return errors.Wrap(err, "upsert preparation failed")
	}

	s.getPS, err = s.db.Prepare(`SELECT slug, stored_at FROM provider_slugs WHERE origin = ? AND title = ?`)
	if err != nil {
		return errors.Wrap(err, "get preparation failed")
	}

	s.countPS, err = s.db.Prepare(`SELECT COUNT(*) FROM provider_slugs`)
	if err != nil {
		return errors.Wrap(err, "count preparation failed")
	}
	return nil
}

// Get returns the stored entry for key
func (s *SQLite) Get(key Key) mo.Option[Entry] {
	var (
		slug     string
		storedAt int64
	)
	err := s.getPS.QueryRow(key.Origin, key.Title).Scan(&slug, &storedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			util.Debug("slug cache read failed", "origin", key.Origin, "title", key.Title, "error", err)
		}
		return mo.None[Entry]()
	}
	return mo.Some(Entry{Value: slug, StoredAt: time.UnixMilli(storedAt)})
}

// Set upserts the entry for key. Write failures are logged and dropped.
func (s *SQLite) Set(key Key, value string, at time.Time) {
	if _, err := s.upsertPS.Exec(key.Origin, key.Title, value, at.UnixMilli()); err != nil {
		util.Warn("slug cache write failed", "origin", key.Origin, "title", key.Title, "error", err)
	}
}

// Len returns the number of stored rows
func (s *SQLite) Len() (int, error) {
	var n int
	if err := s.countPS.QueryRow().Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count failed")
	}
	return n, nil
}

// Close releases the statements and the database handle
func (s *SQLite) Close() error {
	for _, st := range []*sql.Stmt{s.upsertPS, s.getPS, s.countPS} {
		if st != nil {
			_ = st.Close()
		}
	}
	return s.db.Close()
}
