package staff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[[staff]]
id = "u-2"
full_name = "Zoe Kraus"

[[staff]]
id = "u-1"
full_name = "Anna Berger"
email = "anna@example.com"
`

func TestParse_SortsAndResolves(t *testing.T) {
	d, err := Parse([]byte(sample))
	require.NoError(t, err)

	all := d.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Anna Berger", all[0].FullName)

	ref, ok := d.Profile("u-1")
	require.True(t, ok)
	assert.Equal(t, "anna@example.com", ref.Email)

	_, ok = d.Profile("u-9")
	assert.False(t, ok)
}

func TestParse_RejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte("[[staff]]\nid = \"a\"\n[[staff]]\nid = \"a\"\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Empty(t, d.All())
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staff.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, d.All(), 2)
}
