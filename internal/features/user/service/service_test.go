package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/features/user/models"
	"storefront-bot-backend/internal/features/user/repository"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) CreditReferral(ctx context.Context, referrerID, referredID string, entry models.Referral) error {
	args := m.Called(ctx, referrerID, referredID, entry)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func newService(repo repository.UserRepository) UserService {
	return NewUserService(repo, Options{
		StorefrontURL: "https://tg-store.vercel.app/",
		BrandName:     "Hulu Delivery",
		BotUsername:   "hulu_bot",
		Now:           func() time.Time { return fixedNow },
	})
}

func input(text string, premium bool) models.OnboardInput {
	return models.OnboardInput{
		UserID:       "42",
		FirstName:    "John",
		LastName:     "Doe",
		Username:     "johndoe",
		LanguageCode: "en",
		IsPremium:    premium,
		CommandText:  text,
	}
}

func TestOnboard_NewUserWithoutReferral(t *testing.T) {
	repo := new(mockUserRepository)
	ctx := context.Background()

	repo.On("Exists", ctx, "42").Return(false, nil).Once()
	repo.On("CreateIfAbsent", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.ID == "42" &&
			u.Balance == 0 &&
			u.ReferredBy == nil &&
			u.FirstName == "John" &&
			*u.LastName == "Doe" &&
			u.Daily.ClaimedTime == nil &&
			u.Daily.ClaimedDay == 0 &&
			u.CreatedAt.Equal(fixedNow)
	})).Return(true, nil).Once()

	welcome, err := newService(repo).Onboard(ctx, input("/start", false))
	require.NoError(t, err)

	assert.Contains(t, welcome.Text, "Hello John Doe! 👋")
	assert.Contains(t, welcome.Text, "Welcome to Hulu Delivery.")
	assert.Equal(t, "Order Now", welcome.ButtonText)
	assert.Equal(t, "https://tg-store.vercel.app/", welcome.ButtonURL)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "CreditReferral", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOnboard_ReferralBonus(t *testing.T) {
	cases := []struct {
		name    string
		premium bool
		bonus   int64
	}{
		{"regular user", false, 100},
		{"premium user", true, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mockUserRepository)
			ctx := context.Background()

			repo.On("Exists", ctx, "42").Return(false, nil).Once()
			repo.On("Exists", ctx, "7").Return(true, nil).Once()
			repo.On("CreateIfAbsent", ctx, mock.MatchedBy(func(u *models.User) bool {
				return u.ReferredBy != nil && *u.ReferredBy == "7" && u.IsPremium == tc.premium
			})).Return(true, nil).Once()
			repo.On("CreditReferral", ctx, "7", "42", mock.MatchedBy(func(e models.Referral) bool {
				return e.AddedValue == tc.bonus && e.FirstName == "John" && *e.LastName == "Doe" && e.UserImage == nil
			})).Return(nil).Once()

			_, err := newService(repo).Onboard(ctx, input("/start ref_7", tc.premium))
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestOnboard_UnknownReferrer(t *testing.T) {
	repo := new(mockUserRepository)
	ctx := context.Background()

	repo.On("Exists", ctx, "42").Return(false, nil).Once()
	repo.On("Exists", ctx, "999").Return(false, nil).Once()
	repo.On("CreateIfAbsent", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.ReferredBy == nil
	})).Return(true, nil).Once()

	_, err := newService(repo).Onboard(ctx, input("/start ref_999", false))
	require.NoError(t, err)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "CreditReferral", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOnboard_SelfReferralIsIgnored(t *testing.T) {
	repo := new(mockUserRepository)
	ctx := context.Background()

	repo.On("Exists", ctx, "42").Return(false, nil).Once()
	repo.On("CreateIfAbsent", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.ReferredBy == nil
	})).Return(true, nil).Once()

	_, err := newService(repo).Onboard(ctx, input("/start ref_42", false))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestOnboard_ReturningUserIsNoop(t *testing.T) {
	repo := new(mockUserRepository)
	ctx := context.Background()

	repo.On("Exists", ctx, "42").Return(true, nil).Twice()

	svc := newService(repo)
	for i := 0; i < 2; i++ {
		welcome, err := svc.Onboard(ctx, input("/start ref_7", false))
		require.NoError(t, err)
		assert.Equal(t, "https://tg-store.vercel.app/", welcome.ButtonURL)
	}

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "CreditReferral", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOnboard_LostCreateRaceSkipsCredit(t *testing.T) {
	repo := new(mockUserRepository)
	ctx := context.Background()

	repo.On("Exists", ctx, "42").Return(false, nil).Once()
	repo.On("Exists", ctx, "7").Return(true, nil).Once()
	repo.On("CreateIfAbsent", ctx, mock.Anything).Return(false, nil).Once()

	_, err := newService(repo).Onboard(ctx, input("/start ref_7", false))
	require.NoError(t, err)

	repo.AssertNotCalled(t, "CreditReferral", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOnboard_ReferrerVanishedBeforeCredit(t *testing.T) {
	repo := new(mockUserRepository)
	ctx := context.Background()

	repo.On("Exists", ctx, "42").Return(false, nil).Once()
	repo.On("Exists", ctx, "7").Return(true, nil).Once()
	repo.On("CreateIfAbsent", ctx, mock.Anything).Return(true, nil).Once()
	repo.On("CreditReferral", ctx, "7", "42", mock.Anything).Return(repository.ErrNotFound).Once()

	_, err := newService(repo).Onboard(ctx, input("/start ref_7", false))
	assert.NoError(t, err)
}

func TestOnboard_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("store unreachable", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("Exists", ctx, "42").Return(false, errors.New("dial tcp: connection refused"))

		_, err := newService(repo).Onboard(ctx, input("/start", false))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStore))
	})

	t.Run("malformed referral token", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("Exists", ctx, "42").Return(false, nil)

		_, err := newService(repo).Onboard(ctx, input("/start ref_", false))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
		repo.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
	})

	t.Run("credit failure", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("Exists", ctx, "42").Return(false, nil)
		repo.On("Exists", ctx, "7").Return(true, nil)
		repo.On("CreateIfAbsent", ctx, mock.Anything).Return(true, nil)
		repo.On("CreditReferral", ctx, "7", "42", mock.Anything).Return(errors.New("EXECABORT"))

		_, err := newService(repo).Onboard(ctx, input("/start ref_7", false))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStore))
	})

	t.Run("missing user id", func(t *testing.T) {
		in := input("/start", false)
		in.UserID = ""
		_, err := newService(new(mockUserRepository)).Onboard(ctx, in)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	})
}

func TestOnboard_WelcomeWithoutLastName(t *testing.T) {
	repo := new(mockUserRepository)
	ctx := context.Background()
	repo.On("Exists", ctx, "42").Return(true, nil)

	in := input("/start", false)
	in.LastName = ""
	welcome, err := newService(repo).Onboard(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, welcome.Text, "Hello John! 👋")
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("GetByID", ctx, "42").Return(&models.User{
			ID:        "42",
			FirstName: "John",
			Balance:   600,
			Referrals: map[string]models.Referral{"7": {AddedValue: 500}, "8": {AddedValue: 100}},
		}, nil)

		p, err := newService(repo).GetProfile(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, int64(600), p.Balance)
		assert.Equal(t, 2, p.ReferralsCount)
		assert.Equal(t, "https://t.me/hulu_bot?start=ref_42", p.ReferralLink)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("GetByID", ctx, "404").Return(nil, repository.ErrNotFound)

		_, err := newService(repo).GetProfile(ctx, "404")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})
}
