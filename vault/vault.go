// Package vault reads blog content out of a personal knowledge vault and
// classifies it against what the database already knows.
//
// A vault is a directory tree with two well-known folders:
//
//	<root>/__IMAGES__/<name>.png
//	<root>/__BLOG_POSTS__/<post>/description.md
//	<root>/__BLOG_POSTS__/<post>/text.md
//
// Everything else in the vault is ignored.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

const (
	ImagesDir = "__IMAGES__"
	PostsDir  = "__BLOG_POSTS__"

	DescriptionFile = "description.md"
	TextFile        = "text.md"

	// ImageExt is the only image format picked up from ImagesDir.
	ImageExt = ".png"

	// MaxDescriptionLen is measured in characters, not bytes.
	MaxDescriptionLen = 50
)

// Image is a single image file found in the vault.
type Image struct {
	Name     string
	Data     []byte
	Released bool
}

// Post is a single blog post directory found in the vault.
// ReleaseDate and LastUpdated are owned by the store and are always nil
// on a freshly scanned post.
type Post struct {
	Name        string
	Description string
	Body        string
	Released    bool
	ReleaseDate *time.Time
	LastUpdated *time.Time
}

// Lookup answers existence and release questions for one content type.
// A Lookup is held for the duration of one scan phase and closed at its end.
type Lookup interface {
	Exists(ctx context.Context, name string) (bool, error)
	// IsReleased is only called for names Exists reported true for.
	IsReleased(ctx context.Context, name string) (bool, error)
	Close() error
}

// Catalog hands out scoped lookups, one per scan phase.
type Catalog interface {
	ImageLookup(ctx context.Context) (Lookup, error)
	PostLookup(ctx context.Context) (Lookup, error)
}

// Config locates the vault. FS, when set, is used instead of the host
// filesystem rooted at Root.
type Config struct {
	Root string
	FS   billy.Filesystem
}

func (c Config) filesystem() (billy.Filesystem, error) {
	if c.FS != nil {
		return c.FS, nil
	}
	if c.Root == "" {
		return nil, errors.New("vault: root path is required")
	}
	return osfs.New(c.Root), nil
}

var (
	// ErrMissingFile matches any *MissingFileError.
	ErrMissingFile = errors.New("vault: missing required file")
	// ErrValidation matches any *ValidationError or *EncodingError.
	ErrValidation = errors.New("vault: validation failed")
)

// MissingFileError reports a post directory without one of its required files.
type MissingFileError struct {
	Post string
	File string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("vault: %s file for post %q does not exist", e.File, e.Post)
}

func (e *MissingFileError) Is(target error) bool { return target == ErrMissingFile }

// ValidationError reports post content that breaks a limit.
type ValidationError struct {
	Post   string
	Field  string
	Limit  int
	Length int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("vault: %s for post %q is too long (%d characters, max %d)", e.Field, e.Post, e.Length, e.Limit)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// EncodingError reports a post file that is not valid UTF-8.
type EncodingError struct {
	Post string
	File string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("vault: %s for post %q is not valid UTF-8", e.File, e.Post)
}

func (e *EncodingError) Is(target error) bool { return target == ErrValidation }
