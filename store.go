package vaultsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/vaultsync/vault"
)

// ErrNotFound is returned when a requested post or image does not exist.
var ErrNotFound = sql.ErrNoRows

// Store wraps a SQLite database holding blog posts and images. It also
// serves as the vault.Catalog the scanner classifies against.
type Store struct {
	db *sql.DB
}

var _ vault.Catalog = (*Store)(nil)

const storePragmas = "?_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=cache_size(-8000)"

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them. WAL lets
	// the public handlers read while a sync writes; the busy timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", path+storePragmas)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS blog_posts (
    post_name TEXT PRIMARY KEY,
    description TEXT NOT NULL CHECK (length(description) <= 50),
    text TEXT NOT NULL,
    released INTEGER NOT NULL DEFAULT 0,
    release_date TEXT,
    last_updated TEXT,
    content_hash TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS images (
    image_name TEXT PRIMARY KEY,
    image_data BLOB NOT NULL,
    released INTEGER NOT NULL DEFAULT 0,
    content_hash TEXT NOT NULL DEFAULT ''
);
`)
	return err
}

// ImageLookup pins a connection for one image scan phase.
func (s *Store) ImageLookup(ctx context.Context) (vault.Lookup, error) {
	return s.lookup(ctx, "images", "image_name")
}

// PostLookup pins a connection for one post scan phase.
func (s *Store) PostLookup(ctx context.Context) (vault.Lookup, error) {
	return s.lookup(ctx, "blog_posts", "post_name")
}

func (s *Store) lookup(ctx context.Context, table, key string) (vault.Lookup, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &tableLookup{
		conn:        conn,
		existsQuery: fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)`, table, key),
		releasedSQL: fmt.Sprintf(`SELECT released FROM %s WHERE %s = ?`, table, key),
	}, nil
}

// tableLookup answers vault.Lookup queries over a single pinned connection.
type tableLookup struct {
	conn        *sql.Conn
	existsQuery string
	releasedSQL string
}

func (l *tableLookup) Exists(ctx context.Context, name string) (bool, error) {
	var exists int
	if err := l.conn.QueryRowContext(ctx, l.existsQuery, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (l *tableLookup) IsReleased(ctx context.Context, name string) (bool, error) {
	var released int
	err := l.conn.QueryRowContext(ctx, l.releasedSQL, name).Scan(&released)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return released == 1, nil
}

func (l *tableLookup) Close() error {
	return l.conn.Close()
}

const postColumns = `post_name, description, text, released, release_date, last_updated, content_hash`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (BlogPost, error) {
	var p BlogPost
	var released int
	var releaseDate, lastUpdated sql.NullString
	if err := row.Scan(&p.Name, &p.Description, &p.Text, &released, &releaseDate, &lastUpdated, &p.ContentHash); err != nil {
		return BlogPost{}, err
	}
	p.Released = released == 1
	var err error
	if p.ReleaseDate, err = parseStoreTime(releaseDate); err != nil {
		return BlogPost{}, err
	}
	if p.LastUpdated, err = parseStoreTime(lastUpdated); err != nil {
		return BlogPost{}, err
	}
	return p, nil
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]BlogPost, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListReleasedPosts returns released posts, newest release first.
func (s *Store) ListReleasedPosts(ctx context.Context) ([]BlogPost, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE released = 1 ORDER BY release_date DESC, post_name`)
}

// ListAllPosts returns every post, released or not, ordered by name.
func (s *Store) ListAllPosts(ctx context.Context) ([]BlogPost, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM blog_posts ORDER BY post_name`)
}

// GetPost returns a single released post by name.
func (s *Store) GetPost(ctx context.Context, name string) (BlogPost, error) {
	return scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE post_name = ? AND released = 1`, name))
}

// GetPostAny returns a post by name regardless of release status (for admin).
func (s *Store) GetPostAny(ctx context.Context, name string) (BlogPost, error) {
	return scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE post_name = ?`, name))
}

// InsertPost stores a post the database has not seen before. Release
// status always starts false; releasing is a separate step.
func (s *Store) InsertPost(ctx context.Context, p BlogPost) error {
	hash := p.ContentHash
	if hash == "" {
		hash = PostHash(p.Description, p.Text)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO blog_posts (post_name, description, text, released, content_hash) VALUES (?, ?, ?, 0, ?)`,
		p.Name, p.Description, p.Text, hash)
	return err
}

// UpdatePostContent replaces the vault-owned fields of an existing post and
// stamps last_updated.
func (s *Store) UpdatePostContent(ctx context.Context, name, description, text string, at time.Time) error {
	return s.execOne(ctx, `UPDATE blog_posts SET description = ?, text = ?, content_hash = ?, last_updated = ? WHERE post_name = ?`,
		description, text, PostHash(description, text), formatStoreTime(at), name)
}

// ReleasePost marks a post released. The first release stamps release_date;
// re-releasing keeps the original date.
func (s *Store) ReleasePost(ctx context.Context, name string, at time.Time) error {
	return s.execOne(ctx, `UPDATE blog_posts SET released = 1, release_date = COALESCE(release_date, ?) WHERE post_name = ?`,
		formatStoreTime(at), name)
}

// UnreleasePost hides a post from the public routes.
func (s *Store) UnreleasePost(ctx context.Context, name string) error {
	return s.execOne(ctx, `UPDATE blog_posts SET released = 0 WHERE post_name = ?`, name)
}

// DeletePost removes a post by name. A post still present in the vault is
// inserted again, unreleased, by the next sync.
func (s *Store) DeletePost(ctx context.Context, name string) error {
	return s.execOne(ctx, `DELETE FROM blog_posts WHERE post_name = ?`, name)
}

// PostHashes maps every stored post name to its content hash.
func (s *Store) PostHashes(ctx context.Context) (map[string]string, error) {
	return s.hashes(ctx, `SELECT post_name, content_hash FROM blog_posts`)
}

// InsertImage stores an image the database has not seen before.
func (s *Store) InsertImage(ctx context.Context, img Image) error {
	hash := img.ContentHash
	if hash == "" {
		hash = ContentHash(img.Data)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO images (image_name, image_data, released, content_hash) VALUES (?, ?, 0, ?)`,
		img.Name, img.Data, hash)
	return err
}

// UpdateImageData replaces the bytes of an existing image.
func (s *Store) UpdateImageData(ctx context.Context, name string, data []byte) error {
	return s.execOne(ctx, `UPDATE images SET image_data = ?, content_hash = ? WHERE image_name = ?`,
		data, ContentHash(data), name)
}

// GetImage returns an image with its data. When releasedOnly is set,
// unreleased images are reported as ErrNotFound.
func (s *Store) GetImage(ctx context.Context, name string, releasedOnly bool) (Image, error) {
	query := `SELECT image_name, image_data, released, content_hash FROM images WHERE image_name = ?`
	if releasedOnly {
		query += ` AND released = 1`
	}
	var img Image
	var released int
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&img.Name, &img.Data, &released, &img.ContentHash); err != nil {
		return Image{}, err
	}
	img.Released = released == 1
	img.Size = len(img.Data)
	return img, nil
}

// ListImages returns image metadata ordered by name, without the data.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT image_name, length(image_data), released, content_hash FROM images ORDER BY image_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		var released int
		if err := rows.Scan(&img.Name, &img.Size, &released, &img.ContentHash); err != nil {
			return nil, err
		}
		img.Released = released == 1
		images = append(images, img)
	}
	return images, rows.Err()
}

// ReleaseImage marks an image released.
func (s *Store) ReleaseImage(ctx context.Context, name string) error {
	return s.execOne(ctx, `UPDATE images SET released = 1 WHERE image_name = ?`, name)
}

// UnreleaseImage hides an image from the public routes.
func (s *Store) UnreleaseImage(ctx context.Context, name string) error {
	return s.execOne(ctx, `UPDATE images SET released = 0 WHERE image_name = ?`, name)
}

// ImageHashes maps every stored image name to its content hash.
func (s *Store) ImageHashes(ctx context.Context) (map[string]string, error) {
	return s.hashes(ctx, `SELECT image_name, content_hash FROM images`)
}

func (s *Store) hashes(ctx context.Context, query string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, hash string
		if err := rows.Scan(&name, &hash); err != nil {
			return nil, err
		}
		out[name] = hash
	}
	return out, rows.Err()
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatStoreTime(t time.Time) string {
	return t.UTC().Format(storeTimeLayout)
}

func parseStoreTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(storeTimeLayout, v.String, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse stored time %q: %w", v.String, err)
	}
	return &t, nil
}
