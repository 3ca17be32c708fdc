// Package storage persists decks, review history and user progress in
// SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/studydeck/internal/catalog"
	"github.com/conorfennell/studydeck/internal/domain"
)

const driverName = "sqlite"

var _ catalog.Source = (*DB)(nil)

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	conn, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; an in-memory database exists per connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return New(conn), nil
}

// New wraps an open connection without touching the schema.
func New(conn *sqlx.DB) *DB {
	return &DB{conn: conn, now: time.Now}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Source represents a deck source, either a local path or a Git URL.
type Source struct {
	ID          int64        `db:"id"`
	Path        string       `db:"path"`
	Type        string       `db:"type"`
	LastScanned sql.NullTime `db:"last_scanned"`
}

const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// InsertSource inserts a new source into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// EnsureSource returns the ID of the source at path, inserting it if needed.
func (db *DB) EnsureSource(ctx context.Context, path, sourceType string) (int64, error) {
	s, err := db.FindSourceByPath(ctx, path)
	if err != nil {
		return 0, err
	}
	if s != nil {
		return s.ID, nil
	}
	return db.InsertSource(ctx, path, sourceType)
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	var s Source
	err := db.conn.GetContext(ctx, &s, `
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	var sources []Source
	if err := db.conn.SelectContext(ctx, &sources, `
		SELECT id, path, type, last_scanned
		FROM sources
		ORDER BY id
	`); err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	return sources, nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, db.now().UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

type cardRow struct {
	DeckID     string        `db:"deck_id"`
	ID         string        `db:"id"`
	Front      string        `db:"front"`
	Back       string        `db:"back"`
	Context    string        `db:"context"`
	ImageURL   string        `db:"image_url"`
	Difficulty int           `db:"difficulty"`
	SourceID   sql.NullInt64 `db:"source_id"`
}

func (r cardRow) card() domain.Card {
	return domain.Card{
		ID:         r.ID,
		DeckID:     r.DeckID,
		Front:      r.Front,
		Back:       r.Back,
		Context:    r.Context,
		ImageURL:   r.ImageURL,
		Difficulty: r.Difficulty,
	}
}

// UpsertCard stores a card found in a source. Existing cards keep their key
// and take the new content and source.
func (db *DB) UpsertCard(ctx context.Context, card domain.Card, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (deck_id, id, front, back, context, image_url, difficulty, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(deck_id, id) DO UPDATE SET
			front = excluded.front,
			back = excluded.back,
			context = excluded.context,
			image_url = excluded.image_url,
			difficulty = excluded.difficulty,
			source_id = excluded.source_id
	`,
		card.DeckID,
		card.ID,
		card.Front,
		card.Back,
		card.Context,
		card.ImageURL,
		card.Difficulty,
		sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// GetCardsBySourceID retrieves all cards associated with a specific source ID.
func (db *DB) GetCardsBySourceID(ctx context.Context, sourceID int64) ([]domain.Card, error) {
	var rows []cardRow
	if err := db.conn.SelectContext(ctx, &rows, `
		SELECT deck_id, id, front, back, context, image_url, difficulty, source_id
		FROM cards WHERE source_id = ?
	`, sourceID); err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	return toCards(rows), nil
}

// DeleteCard removes a card from the index.
func (db *DB) DeleteCard(ctx context.Context, deckID, id string) error {
	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM cards
		WHERE deck_id = ? AND id = ?
	`, deckID, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s from deck %s: %w", id, deckID, err)
	}
	return nil
}

// Cards returns the cards of a deck in a stable order. A deck without indexed
// cards is reported as catalog.ErrDeckNotFound.
func (db *DB) Cards(ctx context.Context, deckID string) ([]domain.Card, error) {
	var rows []cardRow
	if err := db.conn.SelectContext(ctx, &rows, `
		SELECT deck_id, id, front, back, context, image_url, difficulty, source_id
		FROM cards WHERE deck_id = ?
		ORDER BY id
	`, deckID); err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", deckID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", catalog.ErrDeckNotFound, deckID)
	}
	return toCards(rows), nil
}

// Decks lists every indexed deck with its card count.
func (db *DB) Decks(ctx context.Context) ([]domain.Deck, error) {
	var decks []domain.Deck
	if err := db.conn.SelectContext(ctx, &decks, `
		SELECT deck_id, COUNT(*) AS card_count
		FROM cards
		GROUP BY deck_id
		ORDER BY deck_id
	`); err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

func toCards(rows []cardRow) []domain.Card {
	cards := make([]domain.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.card())
	}
	return cards
}
