package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storefront-bot-backend/internal/features/user/models"
	"storefront-bot-backend/internal/features/user/repository"
	pgdb "storefront-bot-backend/internal/platform/postgres"
)

type userRepository struct {
	db pgdb.DB
}

func NewPostgresRepository(db pgdb.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var doc []byte
	err := r.db.QueryRow(ctx, `SELECT data FROM users WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = id
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	doc, err := json.Marshal(user)
	if err != nil {
		return false, err
	}

	const q = `
	INSERT INTO users (id, data, created_at, updated_at)
	VALUES ($1, $2, $3, $3)
	ON CONFLICT (id) DO NOTHING`

	tag, err := r.db.Exec(ctx, q, user.ID, doc, user.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CreditReferral locks the referrer row for the duration of the read-modify-write.
func (r *userRepository) CreditReferral(ctx context.Context, referrerID, referredID string, entry models.Referral) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin credit: %w", err)
	}

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT data FROM users WHERE id = $1 FOR UPDATE`, referrerID).Scan(&doc)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}

	updated, err := repository.ApplyReferralCredit(doc, referredID, entry)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET data = $2, updated_at = now() WHERE id = $1`, referrerID, updated); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("update referrer: %w", err)
	}

	return tx.Commit(ctx)
}
