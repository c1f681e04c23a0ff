// Package token produces upload capability tokens.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

const (
	DefaultLength     = 32
	DefaultExpiryDays = 7

	// attemptsPerLength is how many collisions are tolerated before the length grows
	attemptsPerLength = 5
	lengthStep        = 8
)

var ErrInvalidLength = errors.New("token length must be positive")

// ExistsFunc reports whether a candidate token is already taken.
type ExistsFunc func(ctx context.Context, token string) (bool, error)

// Generate returns a random hex string of exactly length characters.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	b := make([]byte, (length+1)/2)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:length], nil
}

// GenerateUnique retries on collision and grows the token by 8 characters
// after every 5 consecutive collisions. Errors from exists are returned as is.
func GenerateUnique(ctx context.Context, exists ExistsFunc, length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	for attempt := 0; attempt < attemptsPerLength; attempt++ {
		candidate, err := Generate(length)
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return GenerateUnique(ctx, exists, length+lengthStep)
}

// ExpirationDate returns now plus days. Non-positive days fall back to DefaultExpiryDays.
func ExpirationDate(days int) time.Time {
	return ExpirationDateFrom(time.Now(), days)
}

// ExpirationDateFrom is ExpirationDate against a caller supplied clock.
func ExpirationDateFrom(now time.Time, days int) time.Time {
	if days <= 0 {
		days = DefaultExpiryDays
	}
	return now.Add(time.Duration(days) * 24 * time.Hour)
}
