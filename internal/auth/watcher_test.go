package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_PicksUpExternalTokenWrite(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "credentials.yml"))

	a := New(testCredentials(), store, "", discardLogger())
	require.Equal(t, Unauthenticated, a.State())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- NewWatcher(a, discardLogger()).Watch(ctx)
	}()

	// Give the watcher time to register before the write lands.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, store.Save(&TokenRecord{
		AccessToken: "from-cli",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	require.Eventually(t, func() bool {
		return a.State() == Authenticated
	}, 3*time.Second, 50*time.Millisecond, "watcher must reload the external write")

	tok, err := a.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-cli", tok)

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}
