// ABOUTME: SQLite-backed static API key store using modernc.org/sqlite
// ABOUTME: Implements the key-validation collaborator; only key digests are persisted

package keystore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ledgerline/registre-gateway/internal/auth"
)

// Key describes a stored API key. The raw key material is only ever returned
// once, from CreateKey; afterwards only the digest exists.
type Key struct {
	ID        string
	Identity  string
	Label     string
	CreatedAt time.Time
	Revoked   bool
}

// SQLiteStore persists static API keys and implements auth.KeyValidator.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ auth.KeyValidator = (*SQLiteStore)(nil)

// Open creates a new SQLite key store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func Open(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "keystore")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating keystore directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening keystore: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("key store initialized", "path", path)
	return s, nil
}

// createSchema creates the key table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS api_keys (
			key_id     TEXT PRIMARY KEY,
			digest     TEXT NOT NULL UNIQUE,
			identity   TEXT NOT NULL,
			label      TEXT NOT NULL,
			created_at TEXT NOT NULL,
			revoked    INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_api_keys_identity ON api_keys(identity);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// digest returns the hex SHA-256 of a raw key.
func digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// CreateKey mints a new static key for the given identity and stores its
// digest. The returned raw key carries the gateway key prefix and cannot be
// recovered later.
func (s *SQLiteStore) CreateKey(ctx context.Context, identity, label string) (raw string, key *Key, err error) {
	if identity == "" {
		return "", nil, errors.New("identity required")
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generating key material: %w", err)
	}
	raw = auth.StaticKeyPrefix + hex.EncodeToString(buf)

	key = &Key{
		ID:        uuid.New().String(),
		Identity:  identity,
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_id, digest, identity, label, created_at, revoked)
		VALUES (?, ?, ?, ?, ?, 0)`,
		key.ID, digest(raw), key.Identity, key.Label, key.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", nil, fmt.Errorf("storing key: %w", err)
	}

	s.logger.Info("static key created", "key_id", key.ID, "identity", identity)
	return raw, key, nil
}

// Validate resolves a raw static key to its identity. Only the digest is used
// in the query; the raw key is never logged or stored.
func (s *SQLiteStore) Validate(ctx context.Context, rawKey string) (*auth.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, label FROM api_keys
		WHERE digest = ? AND revoked = 0`,
		digest(rawKey),
	)

	var identity, label string
	if err := row.Scan(&identity, &label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUnknownKey
		}
		return nil, fmt.Errorf("querying key: %w", err)
	}

	return &auth.Identity{Key: identity, DisplayLabel: label}, nil
}

// Revoke marks a key as revoked by its ID. Revocation is permanent.
func (s *SQLiteStore) Revoke(ctx context.Context, keyID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET revoked = 1 WHERE key_id = ?`, keyID)
	if err != nil {
		return fmt.Errorf("revoking key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoking key: %w", err)
	}
	if n == 0 {
		return auth.ErrUnknownKey
	}

	s.logger.Info("static key revoked", "key_id", keyID)
	return nil
}

// ListKeys returns all keys for inspection, newest first.
func (s *SQLiteStore) ListKeys(ctx context.Context) ([]*Key, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key_id, identity, label, created_at, revoked
		FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []*Key
	for rows.Next() {
		var k Key
		var createdAt string
		var revoked int
		if err := rows.Scan(&k.ID, &k.Identity, &k.Label, &createdAt, &revoked); err != nil {
			return nil, fmt.Errorf("scanning key row: %w", err)
		}
		k.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		k.Revoked = revoked != 0
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}
