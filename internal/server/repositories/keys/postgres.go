package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/dbx"
	"github.com/dmitrijs2005/keygate/internal/server/models"
)

const keyColumns = `id, key_code, subscription_type, duration_days, used, used_by, used_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(row scanner) (*models.ActivationKey, error) {
	var (
		k       models.ActivationKey
		subType string
		usedBy  sql.NullInt64
		usedAt  sql.NullTime
	)

	if err := row.Scan(&k.ID, &k.Code, &subType, &k.DurationDays, &k.Used, &usedBy, &usedAt, &k.CreatedAt); err != nil {
		return nil, err
	}

	k.SubscriptionType = models.SubscriptionType(subType)
	if usedBy.Valid {
		k.UsedBy = &usedBy.Int64
	}
	if usedAt.Valid {
		t := usedAt.Time
		k.UsedAt = &t
	}
	return &k, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.ActivationKey, error) {
	key, err := scanKey(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return key, nil
}

func (r *PostgresRepository) Create(ctx context.Context, key *models.ActivationKey) (*models.ActivationKey, error) {
	query :=
		`INSERT INTO activation_keys (key_code, subscription_type, duration_days)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		key.Code, string(key.SubscriptionType), key.DurationDays).Scan(&key.ID, &key.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

func (r *PostgresRepository) GetKeyByCodeForUpdate(ctx context.Context, code string) (*models.ActivationKey, error) {
	return r.getOne(ctx, `SELECT `+keyColumns+` FROM activation_keys WHERE key_code = $1 FOR UPDATE`, code)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.ActivationKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+keyColumns+` FROM activation_keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ActivationKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id int64, userID int64, at time.Time) error {
	query :=
		`UPDATE activation_keys SET used = TRUE, used_by = $1, used_at = $2
		 WHERE id = $3 AND used = FALSE
		 `

	res, err := r.db.ExecContext(ctx, query, userID, at, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrKeyAlreadyUsed
	}
	return nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activation_keys`)
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
	if _, err := r.db.ExecContext(ctx, `ALTER SEQUENCE activation_keys_id_seq RESTART WITH 1`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
