package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// Deep-link payloads (/start <payload>) are limited to 64 chars
	MaxDeepLinkPayloadLength = 64
	MaxFirstNameLength       = 64
	MaxLastNameLength        = 64
)

// Telegram username regex (допускает буквы, цифры, подчеркивания, 5-32 символа)
var telegramUsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{5,32}$`)

// Алфавит deep-link payload: буквы, цифры, _ и -
var deepLinkRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateUsername проверяет username пользователя или бота
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !telegramUsernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 5-32 characters long and contain only letters, numbers and underscores")
	}
	return nil
}

// ValidateDeepLinkID checks a value that is embedded into a t.me ?start= link.
func ValidateDeepLinkID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if len(id) > MaxDeepLinkPayloadLength {
		return fmt.Errorf("id cannot exceed %d characters", MaxDeepLinkPayloadLength)
	}
	if !deepLinkRegex.MatchString(id) {
		return fmt.Errorf("id may contain only letters, digits, '_' and '-'")
	}
	return nil
}

// TruncateName trims s and cuts it to max runes.
func TruncateName(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
