package id

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var reDocID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewID32 returns a random (v4) UUID rendered as exactly 32 lowercase hex characters.
func NewID32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Valid reports whether s can be used as a caller-supplied document id:
// 1-64 chars of letters, digits, '-' or '_'. No path separators.
func Valid(s string) bool { return reDocID.MatchString(s) }
