package core

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// UnlockType is the mechanism a recipient must satisfy to claim a gift or a
// chain step.
type UnlockType string

const (
	UnlockGPS      UnlockType = "GPS"
	UnlockVideo    UnlockType = "VIDEO"
	UnlockImage    UnlockType = "IMAGE"
	UnlockMarkdown UnlockType = "MARKDOWN"
	UnlockQuiz     UnlockType = "QUIZ"
	UnlockPassword UnlockType = "PASSWORD"
	UnlockURL      UnlockType = "URL"
)

// Valid reports whether t is a known unlock type.
func (t UnlockType) Valid() bool {
	switch t {
	case UnlockGPS, UnlockVideo, UnlockImage, UnlockMarkdown, UnlockQuiz, UnlockPassword, UnlockURL:
		return true
	}
	return false
}

// UnlockData holds type-specific unlock content. Password and quiz answers are
// stored hashed; coordinates live on the owning gift/step, not here.
//
// Password: {"password_hash": hex, "hint": text}
// Quiz:     {"question": text, "answer_hash": hex, "hints": [...]}
// Markdown: {"content": text}
// Video/Image/URL: {"url": text}
type UnlockData map[string]any

// ClaimAttempt is the proof a claimer submits against an unlock condition.
type ClaimAttempt struct {
	Latitude  *float64       `json:"latitude,omitempty"`
	Longitude *float64       `json:"longitude,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// HashSecret reduces a password or quiz answer to the stored comparison form.
// Quiz answers are case-insensitive; callers pass them through NormalizeAnswer
// first.
func HashSecret(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NormalizeAnswer trims and lowercases a quiz answer before hashing.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func secretsEqual(storedHash, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashSecret(candidate))) == 1
}

func payloadString(payload map[string]any, key string) (string, bool) {
	if payload == nil {
		return "", false
	}
	v, ok := payload[key].(string)
	return v, ok
}

// VerifyUnlock checks an attempt against an unlock condition. lat/lon/radius
// describe the target for GPS unlocks; data carries the rest.
func VerifyUnlock(
	unlockType UnlockType,
	lat, lon float64,
	radiusMeters int,
	data UnlockData,
	attempt ClaimAttempt,
) error {
	switch unlockType {
	case UnlockGPS:
		if attempt.Latitude == nil || attempt.Longitude == nil {
			return fmt.Errorf("location required: %w", ErrUnlockFailed)
		}
		d := DistanceMeters(lat, lon, *attempt.Latitude, *attempt.Longitude)
		if d > float64(radiusMeters) {
			return fmt.Errorf("%.0fm outside %dm radius: %w", d, radiusMeters, ErrUnlockFailed)
		}
		return nil

	case UnlockPassword:
		stored, ok := data["password_hash"].(string)
		if !ok {
			return fmt.Errorf("no password configured: %w", ErrUnlockFailed)
		}
		candidate, ok := payloadString(attempt.Payload, "password")
		if !ok || !secretsEqual(stored, candidate) {
			return fmt.Errorf("wrong password: %w", ErrUnlockFailed)
		}
		return nil

	case UnlockQuiz:
		stored, ok := data["answer_hash"].(string)
		if !ok {
			return fmt.Errorf("no quiz answer configured: %w", ErrUnlockFailed)
		}
		candidate, ok := payloadString(attempt.Payload, "answer")
		if !ok || !secretsEqual(stored, NormalizeAnswer(candidate)) {
			return fmt.Errorf("wrong answer: %w", ErrUnlockFailed)
		}
		return nil

	case UnlockVideo, UnlockImage, UnlockMarkdown, UnlockURL:
		// View-through content; acknowledging the claim is the proof.
		return nil
	}

	return fmt.Errorf("unknown unlock type %q: %w", unlockType, ErrUnlockFailed)
}
