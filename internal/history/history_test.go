package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "nope", "hist"))
	require.NoError(t, err)
	require.Empty(t, f.Entries())
}

func TestAppendPersistsAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	f, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Append("ls /"))
	require.NoError(t, f.Append("cat /f"))
	require.Equal(t, []string{"ls /", "cat /f"}, f.Entries())

	reopened, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, []string{"ls /", "cat /f"}, reopened.Entries())
}

func TestAppendBlankLineIsNoop(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "hist"))
	require.NoError(t, err)
	require.NoError(t, f.Append(""))
	require.Empty(t, f.Entries())
}
