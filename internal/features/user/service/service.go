package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/common/logger"
	"storefront-bot-backend/internal/features/user/models"
	"storefront-bot-backend/internal/features/user/repository"
)

const orderButtonText = "Order Now"

type UserService interface {
	// Onboard registers the sender of /start on first contact and credits the
	// referrer named in the command, if any. Returning users get the welcome
	// without any writes.
	Onboard(ctx context.Context, in models.OnboardInput) (*models.Welcome, error)
	GetProfile(ctx context.Context, id string) (*models.UserResponse, error)
}

type Options struct {
	StorefrontURL string
	BrandName     string
	// BotUsername is used to build referral links; empty disables them.
	BotUsername string
	Now         func() time.Time
}

type userService struct {
	repo repository.UserRepository
	opts Options
}

func NewUserService(repo repository.UserRepository, opts Options) UserService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &userService{
		repo: repo,
		opts: opts,
	}
}

func (s *userService) Onboard(ctx context.Context, in models.OnboardInput) (*models.Welcome, error) {
	if in.UserID == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}

	exists, err := s.repo.Exists(ctx, in.UserID)
	if err != nil {
		return nil, apperrors.NewStoreError("get user", err)
	}
	if exists {
		return s.welcome(in), nil
	}

	user := models.NewUser(in, s.opts.Now())

	referrerID, hasToken, err := ParseReferralToken(in.CommandText)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error()).WithDetail("command", in.CommandText)
	}

	referrerFound := false
	if hasToken && referrerID != in.UserID {
		referrerFound, err = s.repo.Exists(ctx, referrerID)
		if err != nil {
			return nil, apperrors.NewStoreError("get referrer", err)
		}
	}
	if referrerFound {
		user.ReferredBy = &referrerID
	}

	created, err := s.repo.CreateIfAbsent(ctx, user)
	if err != nil {
		return nil, apperrors.NewStoreError("create user", err)
	}
	if !created {
		// a concurrent /start from the same user won the race
		return s.welcome(in), nil
	}

	logger.Info().
		Str("user_id", user.ID).
		Bool("is_premium", user.IsPremium).
		Bool("referred", referrerFound).
		Msg("User onboarded")

	if referrerFound {
		entry := models.ReferralEntry(user)
		err := s.repo.CreditReferral(ctx, referrerID, user.ID, entry)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			logger.Warn().
				Str("user_id", user.ID).
				Str("referrer_id", referrerID).
				Msg("Referrer disappeared before credit")
		case err != nil:
			return nil, apperrors.NewStoreError("credit referrer", err)
		default:
			logger.Info().
				Str("referrer_id", referrerID).
				Str("user_id", user.ID).
				Int64("bonus", entry.AddedValue).
				Msg("Referral bonus credited")
		}
	}

	return s.welcome(in), nil
}

func (s *userService) GetProfile(ctx context.Context, id string) (*models.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("user", id)
		}
		return nil, apperrors.NewStoreError("get user", err)
	}

	resp := &models.UserResponse{
		ID:             user.ID,
		FirstName:      user.FirstName,
		Balance:        user.Balance,
		ReferralsCount: len(user.Referrals),
		Referrals:      user.Referrals,
	}
	if resp.Referrals == nil {
		resp.Referrals = map[string]models.Referral{}
	}
	if s.opts.BotUsername != "" {
		resp.ReferralLink = fmt.Sprintf("https://t.me/%s?start=%s", s.opts.BotUsername, ReferralPayload(user.ID))
	}
	return resp, nil
}

func (s *userService) welcome(in models.OnboardInput) *models.Welcome {
	name := strings.TrimSpace(in.FirstName + " " + in.LastName)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s! 👋\n\n", name)
	fmt.Fprintf(&b, "Welcome to %s.\n\n", s.opts.BrandName)
	b.WriteString("collect points and order Products!\n\n")
	b.WriteString("Invite friends to earn more points! 🧨\n")

	return &models.Welcome{
		Text:       b.String(),
		ButtonText: orderButtonText,
		ButtonURL:  s.opts.StorefrontURL,
	}
}
