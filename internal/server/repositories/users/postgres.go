package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/dbx"
	"github.com/dmitrijs2005/keygate/internal/server/models"
)

const userColumns = `uid, username, password_hash, email, hwid, subscription_type, subscription_expires, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u        models.User
		hash     string
		hwid     sql.NullString
		subType  sql.NullString
		subUntil sql.NullTime
	)

	if err := row.Scan(&u.ID, &u.UserName, &hash, &u.Email, &hwid, &subType, &subUntil, &u.CreatedAt); err != nil {
		return nil, err
	}

	u.PasswordHash = []byte(hash)
	if hwid.Valid {
		u.HWID = &hwid.String
	}
	if subType.Valid {
		u.Entitlement.Type = models.SubscriptionType(subType.String)
	}
	if subUntil.Valid {
		t := subUntil.Time
		u.Entitlement.ExpiresAt = &t
	}
	return &u, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, password_hash, email)
		 VALUES ($1, $2, $3)
		 RETURNING uid, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, string(user.PasswordHash), user.Email).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, userName)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, id)
}

func (r *PostgresRepository) GetUserByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) BindHardware(ctx context.Context, id int64, hwid string) (bool, error) {
	query :=
		`UPDATE users SET hwid = $1
		 WHERE uid = $2 AND hwid IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, hwid, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// exec runs a single-row update and maps zero affected rows to ErrorNotFound.
func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateHardware(ctx context.Context, id int64, hwid *string) error {
	return r.exec(ctx, `UPDATE users SET hwid = $1 WHERE uid = $2`, hwid, id)
}

func (r *PostgresRepository) UpdateEntitlement(ctx context.Context, id int64, e models.Entitlement) error {
	var subType *string
	if e.Type != "" {
		s := string(e.Type)
		subType = &s
	}
	return r.exec(ctx,
		`UPDATE users SET subscription_type = $1, subscription_expires = $2 WHERE uid = $3`,
		subType, e.ExpiresAt, id)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, hash []byte) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $1 WHERE uid = $2`, string(hash), id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM users WHERE uid = $1`, id)
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users`)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ResetIdentityCounter(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `ALTER SEQUENCE users_uid_seq RESTART WITH 1`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
