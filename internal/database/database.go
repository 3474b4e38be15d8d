package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"nearby-offers/internal/models"
)

// ErrCatalogNotFound is returned when no catalog matches the request.
var ErrCatalogNotFound = errors.New("catalog not found")

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS catalogs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			offer_count INTEGER NOT NULL,
			document BLOB NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalogs_created_at ON catalogs(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// InsertCatalog stores a validated offers document as it was received.
func (db *DB) InsertCatalog(catalog models.Catalog, document []byte) error {
	_, err := db.conn.Exec(
		`INSERT INTO catalogs (id, offer_count, document, created_at) VALUES (?, ?, ?, ?)`,
		catalog.ID,
		catalog.OfferCount,
		document,
		catalog.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert catalog %s: %w", catalog.ID, err)
	}
	return nil
}

// GetCatalog returns the catalog metadata and raw document for id.
func (db *DB) GetCatalog(id string) (models.Catalog, []byte, error) {
	row := db.conn.QueryRow(
		`SELECT id, offer_count, document, created_at FROM catalogs WHERE id = ?`, id)
	return scanCatalog(row)
}

// GetLatestCatalog returns the most recently stored catalog.
func (db *DB) GetLatestCatalog() (models.Catalog, []byte, error) {
	row := db.conn.QueryRow(
		`SELECT id, offer_count, document, created_at FROM catalogs ORDER BY seq DESC LIMIT 1`)
	return scanCatalog(row)
}

// ListCatalogs returns catalog metadata, newest first.
func (db *DB) ListCatalogs(limit int) ([]models.Catalog, error) {
	rows, err := db.conn.Query(
		`SELECT id, offer_count, created_at FROM catalogs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalogs: %w", err)
	}
	defer rows.Close()

	catalogs := []models.Catalog{}
	for rows.Next() {
		var catalog models.Catalog
		var createdAt string
		if err := rows.Scan(&catalog.ID, &catalog.OfferCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog: %w", err)
		}
		catalog.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		catalogs = append(catalogs, catalog)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalogs: %w", err)
	}

	return catalogs, nil
}

func scanCatalog(row *sql.Row) (models.Catalog, []byte, error) {
	var catalog models.Catalog
	var document []byte
	var createdAt string

	err := row.Scan(&catalog.ID, &catalog.OfferCount, &document, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Catalog{}, nil, ErrCatalogNotFound
	}
	if err != nil {
		return models.Catalog{}, nil, fmt.Errorf("failed to scan catalog: %w", err)
	}

	catalog.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.Catalog{}, nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return catalog, document, nil
}
