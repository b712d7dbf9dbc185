package scaffold

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/vaultsync/vault"
)

func TestGenerate(t *testing.T) {
	fs := memfs.New()

	created, err := Generate(fs, Data{SiteName: "My Notes", VaultPath: "/srv/notes"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"__BLOG_POSTS__/hello-world/description.md",
		"__BLOG_POSTS__/hello-world/text.md",
		"__IMAGES__/.keep",
		".env",
	}, created)

	env, err := util.ReadFile(fs, ".env")
	require.NoError(t, err)
	assert.Contains(t, string(env), "VAULT_PATH=/srv/notes")
	assert.Contains(t, string(env), "SITE_NAME=My Notes")

	text, err := util.ReadFile(fs, "__BLOG_POSTS__/hello-world/text.md")
	require.NoError(t, err)
	assert.Contains(t, string(text), "**My Notes**")
}

func TestGenerateProducesScannableVault(t *testing.T) {
	fs := memfs.New()
	_, err := Generate(fs, Data{SiteName: "Notes"})
	require.NoError(t, err)

	s, err := vault.New(context.Background(), vault.Config{FS: fs}, emptyCatalog{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"hello-world"}, postNames(s.Posts()))
	assert.Empty(t, s.Images())
}

func TestGenerateRefusesOverwrite(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ".env", []byte("keep me"), 0o644))

	_, err := Generate(fs, Data{SiteName: "Notes"})
	require.Error(t, err)

	env, err := util.ReadFile(fs, ".env")
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(env))
}

func TestTitleFromDir(t *testing.T) {
	tests := map[string]string{
		"my-notes":   "My Notes",
		"notes":      "Notes",
		"field_log":  "Field Log",
		"--trailing": "Trailing",
	}
	for in, want := range tests {
		assert.Equal(t, want, TitleFromDir(in), in)
	}
}

func postNames(posts []vault.Post) []string {
	names := make([]string, len(posts))
	for i, p := range posts {
		names[i] = p.Name
	}
	return names
}

// emptyCatalog reports every name as unknown.
type emptyCatalog struct{}

func (emptyCatalog) ImageLookup(context.Context) (vault.Lookup, error) { return emptyCatalog{}, nil }
func (emptyCatalog) PostLookup(context.Context) (vault.Lookup, error)  { return emptyCatalog{}, nil }
func (emptyCatalog) Exists(context.Context, string) (bool, error)       { return false, nil }
func (emptyCatalog) IsReleased(context.Context, string) (bool, error)   { return false, nil }
func (emptyCatalog) Close() error                                       { return nil }
