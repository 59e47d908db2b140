package models

import (
	"time"

	"storefront-bot-backend/internal/common/validation"
)

const (
	// ReferralBonus is credited to a referrer for every new non-premium user.
	ReferralBonus int64 = 100
	// PremiumReferralBonus is credited for a Telegram Premium user.
	PremiumReferralBonus int64 = 500
)

// User is the document stored under users/{id}
// @Description Bot user with points balance and referrals
type User struct {
	ID           string              `json:"id" example:"42"`
	UserImage    *string             `json:"userImage"`
	FirstName    string              `json:"firstName" example:"John"`
	LastName     *string             `json:"lastName" example:"Doe"`
	Username     *string             `json:"username" example:"johndoe"`
	LanguageCode string              `json:"languageCode" example:"en"`
	IsPremium    bool                `json:"isPremium"`
	Phone        *string             `json:"phone"`
	Balance      int64               `json:"balance" example:"100"`
	Daily        Daily               `json:"daily"`
	ReferredBy   *string             `json:"referredBy"`
	Referrals    map[string]Referral `json:"referrals,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// Daily tracks the daily points claim.
type Daily struct {
	ClaimedTime *time.Time `json:"claimedTime"`
	ClaimedDay  int        `json:"claimedDay"`
}

// Referral is an entry of the referrer's referrals map, keyed by referred user id.
type Referral struct {
	AddedValue int64   `json:"addedValue" example:"100"`
	FirstName  string  `json:"firstName" example:"Jane"`
	LastName   *string `json:"lastName"`
	UserImage  *string `json:"userImage"`
}

// BonusFor returns the amount credited to a referrer for bringing in a user.
func BonusFor(isPremium bool) int64 {
	if isPremium {
		return PremiumReferralBonus
	}
	return ReferralBonus
}

// OnboardInput carries the sender of a /start command.
type OnboardInput struct {
	UserID       string
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
	IsPremium    bool
	CommandText  string
}

// Welcome is what the bot answers to /start: a text and a single button
// opening the storefront.
type Welcome struct {
	Text       string
	ButtonText string
	ButtonURL  string
}

// UserResponse is the public profile returned to the storefront.
// @Description Points balance and referrals of the current user
type UserResponse struct {
	ID             string              `json:"id" example:"42"`
	FirstName      string              `json:"firstName" example:"John"`
	Balance        int64               `json:"balance" example:"600"`
	ReferralsCount int                 `json:"referralsCount" example:"2"`
	Referrals      map[string]Referral `json:"referrals"`
	ReferralLink   string              `json:"referralLink,omitempty" example:"https://t.me/shop_bot?start=ref_42"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewUser builds a fresh user document with a zero balance.
func NewUser(in OnboardInput, now time.Time) *User {
	return &User{
		ID:           in.UserID,
		FirstName:    validation.TruncateName(in.FirstName, validation.MaxFirstNameLength),
		LastName:     optional(validation.TruncateName(in.LastName, validation.MaxLastNameLength)),
		Username:     optional(in.Username),
		LanguageCode: in.LanguageCode,
		IsPremium:    in.IsPremium,
		Balance:      0,
		Daily:        Daily{ClaimedDay: 0},
		CreatedAt:    now.UTC(),
	}
}

// ReferralEntry builds the entry stored in the referrer's map for u.
func ReferralEntry(u *User) Referral {
	return Referral{
		AddedValue: BonusFor(u.IsPremium),
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		UserImage:  nil,
	}
}
