package service

import (
	"errors"
	"strings"

	"storefront-bot-backend/internal/common/validation"
)

const referralPrefix = "ref_"

var ErrMalformedReferral = errors.New("malformed referral token")

// ParseReferralToken extracts the referrer id from "/start ref_<id>".
// ok is false when the command carries no referral token.
func ParseReferralToken(commandText string) (referrerID string, ok bool, err error) {
	fields := strings.Fields(commandText)
	if len(fields) < 2 || !strings.HasPrefix(fields[1], referralPrefix) {
		return "", false, nil
	}

	referrerID = strings.TrimPrefix(fields[1], referralPrefix)
	if validation.ValidateDeepLinkID(referrerID) != nil {
		return "", false, ErrMalformedReferral
	}
	return referrerID, true, nil
}

// ReferralPayload is the /start payload that credits referrerID.
func ReferralPayload(referrerID string) string {
	return referralPrefix + referrerID
}
