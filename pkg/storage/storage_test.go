package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("rosters/roster-MAT-3A.pdf", []byte("%PDF-fake"))
	require.NoError(t, err)
	require.Equal(t, "rosters/roster-MAT-3A.pdf", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "%PDF-fake", string(data))
}

func TestLocalStorageDeleteMissingFile(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Delete("rosters/gone.pdf"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("a,b"))
	require.NoError(t, err)
	_, err = store.Save("fresh.csv", []byte("c,d"))
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), stale, stale))

	removed, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.csv"}, removed)

	_, err = store.Open("old.csv")
	require.Error(t, err)
	file, err := store.Open("fresh.csv")
	require.NoError(t, err)
	file.Close()
}

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("roster-c1", "rosters/roster-MAT-3A.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	exportID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "roster-c1", exportID)
	require.Equal(t, "rosters/roster-MAT-3A.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("roster-c1", "rosters/roster-MAT-3A.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse("other"+token[5:], false)
	require.Error(t, err)

	otherSigner := NewSignedURLSigner("different-secret", time.Hour)
	_, _, _, err = otherSigner.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond)
	token, _, err := signer.Generate("roster-c1", "rosters/roster-MAT-3A.pdf")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	_, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "rosters/roster-MAT-3A.pdf", path)
}
