package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
)

// Scanner holds the classification of the most recent successful scan.
type Scanner struct {
	fs      billy.Filesystem
	catalog Catalog
	logger  *zap.Logger

	scanMu sync.Mutex // serializes Rescan

	mu        sync.RWMutex
	images    []Image
	newImages []Image
	posts     []Post
	newPosts  []Post
	scannedAt time.Time
}

// New creates a Scanner and runs the first scan.
func New(ctx context.Context, cfg Config, catalog Catalog, logger *zap.Logger) (*Scanner, error) {
	fs, err := cfg.filesystem()
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, errors.New("vault: catalog is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scanner{fs: fs, catalog: catalog, logger: logger}
	if err := s.Rescan(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Rescan rebuilds images and posts from scratch. The four result sets are
// replaced together only when both phases succeed; on error the previous
// results remain visible.
func (s *Scanner) Rescan(ctx context.Context) error {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	start := time.Now()
	images, newImages, err := s.scanImages(ctx)
	if err != nil {
		return err
	}
	posts, newPosts, err := s.scanPosts(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.images, s.newImages = images, newImages
	s.posts, s.newPosts = posts, newPosts
	s.scannedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("vault scanned",
		zap.Int("images", len(images)),
		zap.Int("new_images", len(newImages)),
		zap.Int("posts", len(posts)),
		zap.Int("new_posts", len(newPosts)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Images returns every image found by the last scan.
func (s *Scanner) Images() []Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Image(nil), s.images...)
}

// NewImages returns the images the store did not know about.
func (s *Scanner) NewImages() []Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Image(nil), s.newImages...)
}

// Posts returns every post found by the last scan.
func (s *Scanner) Posts() []Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Post(nil), s.posts...)
}

// NewPosts returns the posts the store did not know about.
func (s *Scanner) NewPosts() []Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Post(nil), s.newPosts...)
}

// LastScan is the completion time of the last successful scan.
func (s *Scanner) LastScan() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scannedAt
}

func (s *Scanner) scanImages(ctx context.Context) (all, added []Image, err error) {
	entries, err := s.fs.ReadDir(ImagesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: read %s: %w", ImagesDir, err)
	}

	lookup, err := s.catalog.ImageLookup(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: open image lookup: %w", err)
	}
	defer closeLookup(lookup, &err)

	for _, entry := range entries {
		path := s.fs.Join(ImagesDir, entry.Name())
		if !s.isImage(path, entry) {
			continue
		}
		name := entry.Name()
		data, err := util.ReadFile(s.fs, path)
		if err != nil {
			return nil, nil, fmt.Errorf("vault: read image %q: %w", name, err)
		}
		exists, released, err := classify(ctx, lookup, name)
		if err != nil {
			return nil, nil, fmt.Errorf("vault: look up image %q: %w", name, err)
		}
		img := Image{Name: name, Data: data, Released: released}
		all = append(all, img)
		if !exists {
			added = append(added, img)
		}
	}
	return all, added, nil
}

func (s *Scanner) isImage(path string, entry os.FileInfo) bool {
	info, err := s.resolve(path, entry)
	if err != nil || !info.Mode().IsRegular() {
		s.logger.Debug("skipping non-file image entry", zap.String("path", path))
		return false
	}
	// TODO: accept jpg and webp once the image routes can serve them.
	if !strings.HasSuffix(entry.Name(), ImageExt) {
		s.logger.Debug("skipping unsupported image", zap.String("path", path))
		return false
	}
	return true
}

func (s *Scanner) scanPosts(ctx context.Context) (all, added []Post, err error) {
	entries, err := s.fs.ReadDir(PostsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: read %s: %w", PostsDir, err)
	}

	lookup, err := s.catalog.PostLookup(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: open post lookup: %w", err)
	}
	defer closeLookup(lookup, &err)

	for _, entry := range entries {
		dir := s.fs.Join(PostsDir, entry.Name())
		if info, err := s.resolve(dir, entry); err != nil || !info.IsDir() {
			s.logger.Debug("skipping non-directory post entry", zap.String("path", dir))
			continue
		}
		post, err := s.readPost(dir, entry.Name())
		if err != nil {
			return nil, nil, err
		}
		exists, released, err := classify(ctx, lookup, post.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("vault: look up post %q: %w", post.Name, err)
		}
		post.Released = released
		all = append(all, post)
		if !exists {
			added = append(added, post)
		}
	}
	return all, added, nil
}

func (s *Scanner) readPost(dir, name string) (Post, error) {
	description, err := s.readRequired(dir, name, DescriptionFile)
	if err != nil {
		return Post{}, err
	}
	if n := utf8.RuneCountInString(description); n > MaxDescriptionLen {
		return Post{}, &ValidationError{Post: name, Field: "description", Limit: MaxDescriptionLen, Length: n}
	}
	body, err := s.readRequired(dir, name, TextFile)
	if err != nil {
		return Post{}, err
	}
	return Post{Name: name, Description: description, Body: body}, nil
}

func (s *Scanner) readRequired(dir, post, file string) (string, error) {
	path := s.fs.Join(dir, file)
	if _, err := s.fs.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &MissingFileError{Post: post, File: file}
		}
		return "", fmt.Errorf("vault: stat %s for post %q: %w", file, post, err)
	}
	data, err := util.ReadFile(s.fs, path)
	if err != nil {
		return "", fmt.Errorf("vault: read %s for post %q: %w", file, post, err)
	}
	if !utf8.Valid(data) {
		return "", &EncodingError{Post: post, File: file}
	}
	return normalizeNewlines(string(data)), nil
}

// normalizeNewlines turns CRLF and lone CR line endings into LF.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

// resolve follows a symlinked directory entry to its target.
func (s *Scanner) resolve(path string, entry os.FileInfo) (os.FileInfo, error) {
	if entry.Mode()&os.ModeSymlink == 0 {
		return entry, nil
	}
	return s.fs.Stat(path)
}

func classify(ctx context.Context, lookup Lookup, name string) (exists, released bool, err error) {
	exists, err = lookup.Exists(ctx, name)
	if err != nil || !exists {
		return exists, false, err
	}
	released, err = lookup.IsReleased(ctx, name)
	return exists, released, err
}

func closeLookup(l Lookup, err *error) {
	if cerr := l.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("vault: close lookup: %w", cerr)
	}
}
