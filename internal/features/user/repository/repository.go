package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-bot-backend/internal/features/user/models"
)

var ErrNotFound = errors.New("user not found")

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	// CreateIfAbsent stores user unless a document with its id already exists.
	// It reports whether the document was written.
	CreateIfAbsent(ctx context.Context, user *models.User) (bool, error)
	// CreditReferral atomically adds entry.AddedValue to the referrer's balance
	// and records entry under referredID. ErrNotFound if the referrer is gone.
	CreditReferral(ctx context.Context, referrerID, referredID string, entry models.Referral) error
}

// ApplyReferralCredit patches a raw user document. Fields other than balance
// and referrals are carried over untouched, so documents written by other
// tools keep their extra keys.
func ApplyReferralCredit(doc []byte, referredID string, entry models.Referral) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("decode user document: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}

	var balance int64
	if raw, ok := fields["balance"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &balance); err != nil {
			return nil, fmt.Errorf("decode balance: %w", err)
		}
	}

	referrals := make(map[string]models.Referral)
	if raw, ok := fields["referrals"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &referrals); err != nil {
			return nil, fmt.Errorf("decode referrals: %w", err)
		}
		if referrals == nil {
			referrals = make(map[string]models.Referral)
		}
	}

	referrals[referredID] = entry
	balance += entry.AddedValue

	var err error
	if fields["balance"], err = json.Marshal(balance); err != nil {
		return nil, err
	}
	if fields["referrals"], err = json.Marshal(referrals); err != nil {
		return nil, err
	}

	return json.Marshal(fields)
}
