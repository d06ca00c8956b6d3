package stylestore

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var ErrStyleNotFound = errors.New("style not found in store")

const schema = `
CREATE TABLE IF NOT EXISTS styles (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	document TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

type StyleSummary struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Store persists style documents by ID. Documents read with Get are cached until the style is saved or deleted.
type Store struct {
	db      *sqlx.DB
	cache   *ristretto.Cache
	nowFunc func() time.Time
}

func Open(connStr string) (*Store, errorsx.Error) {
	conn, err := ParseConnectionURL(connStr)
	if err != nil {
		return nil, err
	}

	db, openErr := sqlx.Open(conn.driverName(), conn.dataSourceName())
	if openErr != nil {
		return nil, errorsx.Wrap(openErr, "type", conn.Type)
	}

	if conn.Type == DBTypeSQLite {
		// sqlite allows one writer at a time
		db.SetMaxOpenConns(1)
	}

	_, execErr := db.Exec(schema)
	if execErr != nil {
		db.Close()
		return nil, errorsx.Wrap(execErr, "type", conn.Type)
	}

	cache, cacheErr := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     64 << 20, // bytes of style JSON
		BufferItems: 64,
	})
	if cacheErr != nil {
		db.Close()
		return nil, errorsx.Wrap(cacheErr)
	}

	return &Store{db, cache, time.Now}, nil
}

func (s *Store) Close() errorsx.Error {
	s.cache.Close()
	return errorsx.Wrap(s.db.Close())
}

// Save inserts the style, or replaces the stored style with the same ID
func (s *Store) Save(style *mapboxglstyle.Style) errorsx.Error {
	if style.ID == "" {
		return errorsx.Errorf("style %q has no ID", style.Name)
	}

	document, err := json.Marshal(style)
	if err != nil {
		return errorsx.Wrap(err, "styleID", style.ID)
	}

	_, err = s.db.Exec(s.db.Rebind(`
		INSERT INTO styles (id, name, document, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			document = excluded.document,
			updated_at = excluded.updated_at`),
		style.ID, style.Name, string(document), s.nowFunc().UTC(),
	)
	if err != nil {
		return errorsx.Wrap(err, "styleID", style.ID)
	}

	s.cache.Del(style.ID)
	return nil
}

// Get returns a freshly parsed copy of the stored style
func (s *Store) Get(id string) (*mapboxglstyle.Style, errorsx.Error) {
	document, err := s.getDocument(id)
	if err != nil {
		return nil, err
	}

	style, err := mapboxglstyle.Parse(bytes.NewReader(document))
	if err != nil {
		return nil, errorsx.Wrap(err, "styleID", id)
	}

	return style, nil
}

func (s *Store) getDocument(id string) ([]byte, errorsx.Error) {
	if cached, ok := s.cache.Get(id); ok {
		if document, ok := cached.([]byte); ok {
			return document, nil
		}
	}

	var document string
	err := s.db.Get(&document, s.db.Rebind(`SELECT document FROM styles WHERE id = ?`), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errorsx.Wrap(ErrStyleNotFound, "styleID", id)
		}
		return nil, errorsx.Wrap(err, "styleID", id)
	}

	s.cache.Set(id, []byte(document), int64(len(document)))
	s.cache.Wait()

	return []byte(document), nil
}

func (s *Store) List() ([]*StyleSummary, errorsx.Error) {
	summaries := []*StyleSummary{}
	err := s.db.Select(&summaries, `SELECT id, name, updated_at FROM styles ORDER BY id`)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return summaries, nil
}

func (s *Store) Delete(id string) errorsx.Error {
	result, err := s.db.Exec(s.db.Rebind(`DELETE FROM styles WHERE id = ?`), id)
	if err != nil {
		return errorsx.Wrap(err, "styleID", id)
	}

	s.cache.Del(id)

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errorsx.Wrap(err, "styleID", id)
	}

	if rowsAffected == 0 {
		return errorsx.Wrap(ErrStyleNotFound, "styleID", id)
	}

	return nil
}
