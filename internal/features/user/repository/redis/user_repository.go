package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"storefront-bot-backend/internal/common/logger"
	"storefront-bot-backend/internal/features/user/models"
	"storefront-bot-backend/internal/features/user/repository"
)

// maxCreditAttempts bounds optimistic-lock retries when concurrent referees
// credit the same referrer.
const maxCreditAttempts = 8

type userRepository struct {
	client redis.UniversalClient
}

func NewUserRepository(client redis.UniversalClient) repository.UserRepository {
	return &userRepository{
		client: client,
	}
}

func key(id string) string { return fmt.Sprintf("users:%s", id) }

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	userJSON, err := r.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(userJSON, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = id
	}

	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return false, err
	}

	return r.client.SetNX(ctx, key(user.ID), userJSON, 0).Result()
}

func (r *userRepository) CreditReferral(ctx context.Context, referrerID, referredID string, entry models.Referral) error {
	k := key(referrerID)

	credit := func(tx *redis.Tx) error {
		doc, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrNotFound
			}
			return err
		}

		updated, err := repository.ApplyReferralCredit(doc, referredID, entry)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, updated, 0)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxCreditAttempts; attempt++ {
		err := r.client.Watch(ctx, credit, k)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}

		logger.Debug().
			Str("referrer_id", referrerID).
			Int("attempt", attempt).
			Msg("Referrer document changed concurrently, retrying credit")
	}

	return fmt.Errorf("credit referral %s: too many concurrent updates", referrerID)
}
