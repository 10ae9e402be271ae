package aibridge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAskCallsProviderOnMissAndCachesResult(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	b := New(dir, func(prompt string) (string, error) {
		calls++
		return "response to " + prompt, nil
	})

	out, err := b.Ask("hello")
	require.NoError(t, err)
	require.Equal(t, "response to hello", out)
	require.Equal(t, 1, calls)

	out2, err := b.Ask("hello")
	require.NoError(t, err)
	require.Equal(t, "response to hello", out2)
	require.Equal(t, 1, calls, "second Ask should hit the cache, not call the provider again")
}

func TestAskReadsLegacySingleFileCache(t *testing.T) {
	dir := t.TempDir()
	hash := hashOf("legacy prompt")
	require.NoError(t, os.WriteFile(filepath.Join(dir, hash+".txt"), []byte("legacy response"), 0o644))

	b := New(dir, func(string) (string, error) {
		t.Fatal("provider should not be called when legacy cache file exists")
		return "", nil
	})
	out, err := b.Ask("legacy prompt")
	require.NoError(t, err)
	require.Equal(t, "legacy response", out)
}

func TestAskPropagatesProviderError(t *testing.T) {
	b := New(t.TempDir(), func(string) (string, error) {
		return "", errors.New("provider unavailable")
	})
	_, err := b.Ask("anything")
	require.Error(t, err)
}

func TestAskSurvivesUnwritableCacheDir(t *testing.T) {
	b := New("/nonexistent-cache-root-for-test", func(prompt string) (string, error) {
		return "ok", nil
	})
	out, err := b.Ask("x")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}
