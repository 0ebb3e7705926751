// Package blob stores uploaded bytes and hands back an opaque locator that
// resolves to them again.
package blob

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotExist       = errors.New("blob does not exist")
	ErrInvalidLocator = errors.New("invalid storage locator")
)

type Store interface {
	// Put stores the bytes read from r under a fresh locator derived from
	// name.
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	Get(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
}

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dotRuns     = regexp.MustCompile(`\.{2,}`)
)

// SafeName reduces an uploaded filename to a single harmless path element.
func SafeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = dotRuns.ReplaceAllString(name, ".")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// NewLocator prefixes the sanitised name with a random id so uploads never
// collide.
func NewLocator(name string) string {
	return uuid.NewString() + "_" + SafeName(name)
}

// ValidLocator accepts only locators NewLocator could have produced: one path
// element, no traversal.
func ValidLocator(locator string) bool {
	if locator == "" || locator == "." || locator == ".." {
		return false
	}
	if strings.ContainsAny(locator, `/\`) || strings.Contains(locator, "..") {
		return false
	}
	return true
}
