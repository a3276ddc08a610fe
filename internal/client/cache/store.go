package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/keygate/internal/cryptox"
	"github.com/dmitrijs2005/keygate/internal/dbx"
)

const (
	keyUserName      = "username"
	keyIdentityToken = "identity_token"
)

// ErrNoSession is returned when nothing is cached.
var ErrNoSession = errors.New("no cached session")

// Session is what survives between launcher runs.
type Session struct {
	UserName      string
	IdentityToken string
}

// Store is a key/value table with session helpers on top.
type Store struct {
	db     dbx.DBTX
	secret []byte
}

func NewStore(db dbx.DBTX) *Store {
	return &Store{db: db}
}

// WithSecret returns a store that seals the identity token with secret.
// A token sealed on another machine reads back as ErrNoSession.
func (s *Store) WithSecret(secret []byte) *Store {
	return &Store{db: s.db, secret: secret}
}

// Get returns (nil, nil) for an absent key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata`)
	if err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	token := []byte(sess.IdentityToken)
	if s.secret != nil {
		sealed, err := cryptox.Seal(token, s.secret)
		if err != nil {
			return fmt.Errorf("failed to seal identity token: %w", err)
		}
		token = sealed
	}

	if err := s.Set(ctx, keyUserName, []byte(sess.UserName)); err != nil {
		return err
	}
	return s.Set(ctx, keyIdentityToken, token)
}

// LoadSession returns ErrNoSession when no identity token is cached.
func (s *Store) LoadSession(ctx context.Context) (*Session, error) {
	token, err := s.Get(ctx, keyIdentityToken)
	if err != nil {
		return nil, err
	}
	if len(token) == 0 {
		return nil, ErrNoSession
	}
	if s.secret != nil {
		if token, err = cryptox.Open(token, s.secret); err != nil {
			return nil, ErrNoSession
		}
	}

	name, err := s.Get(ctx, keyUserName)
	if err != nil {
		return nil, err
	}

	return &Session{UserName: string(name), IdentityToken: string(token)}, nil
}

func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.Delete(ctx, keyIdentityToken); err != nil {
		return err
	}
	return s.Delete(ctx, keyUserName)
}
