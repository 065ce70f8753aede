package sheets

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// FileFingerprint identifies a local file by modification time and size.
// A missing file maps to ErrSourceNotFound.
func FileFingerprint(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrSourceNotFound)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", path, ErrSourceNotFound)
	}
	return fmt.Sprintf("%d-%d", fi.ModTime().UnixNano(), fi.Size()), nil
}

// ContentFingerprint hashes a value matrix. Cells are joined with unit and
// record separators so that shifting a value between cells changes the hash.
func ContentFingerprint(values [][]string) string {
	h := sha1.New()
	for _, row := range values {
		h.Write([]byte(strings.Join(row, "\x1f")))
		h.Write([]byte{'\x1e'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
