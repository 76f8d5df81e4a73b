// Package naming turns capture times into destination paths that never
// overwrite a different file.
package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"

	"media-classify/lib"
)

// MaxSuffixes is the number of single-letter suffixes (a..z) tried after the
// unsuffixed name.
const MaxSuffixes = 26

var ErrNamespaceExhausted = errors.New("namespace exhausted")

// NamespaceExhaustedError is returned when the unsuffixed name and every
// suffix a..z are taken.
type NamespaceExhaustedError struct {
	Source string
	Base   string
}

func (e *NamespaceExhaustedError) Error() string {
	return fmt.Sprintf("no free name for %s: %s and %s[a-z] are all taken", e.Source, e.Base, e.Base)
}

func (e *NamespaceExhaustedError) Unwrap() error { return ErrNamespaceExhausted }

// Namer hands out destination paths and remembers which source each one
// was reserved for during the run.
type Namer struct {
	format string

	mu       sync.Mutex
	reserved map[string]string // destination -> source
	exists   func(string) bool
}

func NewNamer(format string) *Namer {
	return &Namer{
		format:   format,
		reserved: make(map[string]string),
		exists:   lib.FileExists,
	}
}

// Base formats ts with the name format, without extension.
func (n *Namer) Base(ts time.Time) string {
	return strftime.Format(n.format, ts)
}

// NameFor returns the destination for source in destDir. A source that
// already sits at its canonical path gets its own path back.
func (n *Namer) NameFor(source, destDir string, ts time.Time, ext string) (string, error) {
	return n.name(source, destDir, ts, ext, true)
}

// NameForCopy is NameFor for a source that stays in place: the source's own
// path is never handed out.
func (n *Namer) NameForCopy(source, destDir string, ts time.Time, ext string) (string, error) {
	return n.name(source, destDir, ts, ext, false)
}

func (n *Namer) name(source, destDir string, ts time.Time, ext string, allowSelf bool) (string, error) {
	base := filepath.Join(destDir, n.Base(ts))
	ext = NormalizeExt(ext)

	n.mu.Lock()
	defer n.mu.Unlock()

	candidate := base + ext
	for i := 0; ; i++ {
		if !n.occupied(candidate, source, allowSelf) {
			n.reserved[candidate] = source
			return candidate, nil
		}
		if i == MaxSuffixes {
			return "", &NamespaceExhaustedError{Source: source, Base: base}
		}
		candidate = base + string(rune('a'+i)) + ext
	}
}

func (n *Namer) occupied(candidate, source string, allowSelf bool) bool {
	if candidate == source {
		return !allowSelf
	}
	if owner, ok := n.reserved[candidate]; ok && owner != source {
		return true
	}
	return n.exists(candidate)
}

// Release drops the reservation of path, e.g. after the item was skipped.
func (n *Namer) Release(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.reserved, path)
}

// Reserved reports whether path was handed out during this run.
func (n *Namer) Reserved(path string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.reserved[path]
	return ok
}

// NormalizeExt lower-cases ext and folds .jpeg into .jpg.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == ".jpeg" {
		return ".jpg"
	}
	return ext
}

// Matches reports whether base (a file name without extension) is exactly
// the name format applied to some time, optionally followed by one
// collision suffix letter.
func Matches(base, format string) bool {
	if _, err := strftime.Parse(format, base); err == nil {
		return true
	}
	if n := len(base); n > 1 {
		if c := base[n-1]; c >= 'a' && c <= 'z' {
			_, err := strftime.Parse(format, base[:n-1])
			return err == nil
		}
	}
	return false
}
