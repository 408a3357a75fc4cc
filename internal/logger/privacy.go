package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// MinHashSaltLength is the shortest LOG_HASH_SALT accepted by InitHashSalt.
const MinHashSaltLength = 32

const defaultHashSalt = "default-salt-change-in-production"

var hashSalt = defaultHashSalt

// InitHashSalt loads LOG_HASH_SALT. On error the previous salt stays in use.
func InitHashSalt() error {
	salt := os.Getenv("LOG_HASH_SALT")
	switch {
	case salt == "":
		return errors.New("LOG_HASH_SALT is not set")
	case len(salt) < MinHashSaltLength:
		return fmt.Errorf("LOG_HASH_SALT must be at least %d characters", MinHashSaltLength)
	}
	hashSalt = salt
	return nil
}

// InitHashSaltForTesting sets the salt directly.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

func hashID(id int64) string {
	hash := sha256.Sum256(fmt.Appendf(nil, "%d:%s", id, hashSalt))
	return hex.EncodeToString(hash[:])[:8]
}

// HashUserID returns a short salted hash of a Telegram user ID, so log lines
// can be correlated without exposing the driver's account.
func HashUserID(userID int64) string {
	return hashID(userID)
}

// HashChatID returns a short salted hash of a chat ID.
func HashChatID(chatID int64) string {
	return hashID(chatID)
}

// SanitizeDescription redacts an expense or job description, keeping only its
// size for debugging.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(desc)), utf8.RuneCountInString(desc))
}

// SanitizeText shortens free text such as a command argument for logging.
// Counts are in characters, so Greek input is never cut mid-rune.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	n := utf8.RuneCountInString(text)
	if n <= 10 {
		return fmt.Sprintf("<%d chars>", n)
	}
	return fmt.Sprintf("%s...<%d chars>", string([]rune(text)[:3]), n)
}
