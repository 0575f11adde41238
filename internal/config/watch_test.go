package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFileFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: board-1\n"), 0o644))

	changed := make(chan string, 1)
	w, err := WatchFile(path, nil, func(p string) { changed <- p })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("id: board-1\nname: updated\n"), 0o644))

	select {
	case p := <-changed:
		assert.Equal(t, path, p)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch callback after write")
	}
}

func TestWatchFileMissingPathErrors(t *testing.T) {
	_, err := WatchFile(filepath.Join(t.TempDir(), "nonexistent.yaml"), nil, func(string) {})
	assert.Error(t, err)
}
