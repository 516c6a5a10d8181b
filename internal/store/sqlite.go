package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/desertthunder/vinyl/internal/models"
	"github.com/desertthunder/vinyl/internal/shared"
)

// SQLite stores sessions and state mappings in the tables created by [shared.RunMigrations].
type SQLite struct {
	db *sql.DB

	// Now is used to get the current time. This is useful for testing.
	Now func() time.Time
}

var _ Store = (*SQLite)(nil)

// NewSQLite wraps an open database. Call [SQLite.Migrate] before use.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, Now: time.Now}
}

// OpenSQLite opens the database at path and applies pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := shared.NewDatabase(ctx, path)
	if err != nil {
		return nil, err
	}
	s := NewSQLite(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	return shared.RunMigrations(ctx, s.db)
}

func (s *SQLite) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*models.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Session{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (s *SQLite) Set(ctx context.Context, id string, sess *models.Session) error {
	data, err := encode(sess)
	if err != nil {
		return err
	}
	const query = `INSERT INTO sessions (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, query, id, data, s.Now().Unix())
	return err
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLite) PutState(ctx context.Context, state, sessionID string, ttl time.Duration) error {
	const query = `INSERT INTO oauth_states (state, session_id, expiry) VALUES (?, ?, ?)
		ON CONFLICT(state) DO UPDATE SET session_id = excluded.session_id, expiry = excluded.expiry`
	_, err := s.db.ExecContext(ctx, query, state, sessionID, s.Now().Add(ttl).Unix())
	return err
}

// GetState returns "" for unknown states and for rows past their expiry.
func (s *SQLite) GetState(ctx context.Context, state string) (string, error) {
	var (
		sessionID string
		expiry    int64
	)
	row := s.db.QueryRowContext(ctx, `SELECT session_id, expiry FROM oauth_states WHERE state = ?`, state)
	if err := row.Scan(&sessionID, &expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if expiry <= s.Now().Unix() {
		return "", nil
	}
	return sessionID, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Cleanup removes expired state mappings and returns how many rows were deleted.
func (s *SQLite) Cleanup(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expiry <= ?`, s.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
