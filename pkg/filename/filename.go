package filename

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxLength caps the sanitised name in bytes; the timestamp prefix is extra.
const MaxLength = 180

// fallbackName is used when nothing usable survives sanitising
const fallbackName = "file"

// forbidden characters are rejected by at least one common filesystem
var forbidden = map[rune]bool{
	'/': true, '\\': true, ':': true, '*': true, '?': true,
	'"': true, '<': true, '>': true, '|': true,
}

// Sanitize reduces an uploaded file name to a safe single path element.
// Directory components are dropped, control and reserved characters removed,
// and leading dots stripped so the result can never name a parent or hidden
// entry. Letters of any script survive: "בדיקת דם.pdf" stays readable.
func Sanitize(name string) string {
	// Browsers on Windows may send full paths
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case r == utf8.RuneError, unicode.IsControl(r), forbidden[r]:
			continue
		default:
			b.WriteRune(r)
		}
	}

	clean := strings.TrimSpace(b.String())
	clean = strings.TrimLeft(clean, ".")
	clean = strings.TrimSpace(clean)

	if len(clean) > MaxLength {
		clean = truncate(clean, MaxLength)
	}

	if clean == "" {
		return fallbackName
	}
	return clean
}

// truncate keeps the extension and cuts the stem on a rune boundary
func truncate(name string, limit int) string {
	ext := path.Ext(name)
	if len(ext) >= limit {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)
	budget := limit - len(ext)
	for len(stem) > budget {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}
	return stem + ext
}

// Stored builds the on-disk name for an attachment: "<unix millis>-<name>".
func Stored(at time.Time, original string) string {
	return fmt.Sprintf("%d-%s", at.UnixMilli(), Sanitize(original))
}
