package notifier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StaticOnly(t *testing.T) {
	r, err := NewRegistry([]string{" a@example.com", "A@Example.com", "Bob <b@example.com>", "broken", ""}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, r.List())
	r.Watch()
}

func TestRegistry_MergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipients.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recipients:\n  - c@example.com\n  - a@example.com\n"), 0o644))

	r, err := NewRegistry([]string{"a@example.com"}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "c@example.com"}, r.List())
}

func TestRegistry_MissingFileIsAllowed(t *testing.T) {
	r, err := NewRegistry([]string{"a@example.com"}, filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, r.List())
}

func TestRegistry_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipients.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recipients: [unclosed\n"), 0o644))
	_, err := NewRegistry(nil, path)
	assert.Error(t, err)
}

func TestRegistry_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipients.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recipients:\n  - a@example.com\n"), 0o644))

	r, err := NewRegistry(nil, path)
	require.NoError(t, err)
	r.Watch()
	assert.Equal(t, []string{"a@example.com"}, r.List())

	require.NoError(t, os.WriteFile(path, []byte("recipients:\n  - a@example.com\n  - d@example.com\n"), 0o644))
	assert.Eventually(t, func() bool {
		return len(r.List()) == 2
	}, 5*time.Second, 20*time.Millisecond)
}
