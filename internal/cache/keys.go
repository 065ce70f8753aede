package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"a3p/internal/core"
)

// CoverageKey builds the memo key of a coverage series. Equivalent state
// spellings (" sp", "SP") map to the same key.
func CoverageKey(snapshotID string, ceiling core.Date, state string) string {
	return makeKey(
		"coverage",
		strings.TrimSpace(snapshotID),
		ceiling.String(),
		core.Record{State: state}.StateCode(),
	)
}

func makeKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	h := sha1.Sum([]byte(joined))
	return hex.EncodeToString(h[:])
}
