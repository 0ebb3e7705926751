package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"filedrop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFile(name string) *models.File {
	return &models.File{
		DisplayName:      name,
		Category:         "Docs",
		OriginalFilename: name + ".txt",
		Locator:          "loc-" + name,
		UploadedBy:       "alice",
		UploadedAt:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOpenCreatesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "filedrop.json")
	_, err := Open(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `[]`, string(raw["users"]))
	assert.JSONEq(t, `[]`, string(raw["files"]))
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filedrop.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "filedrop.json")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "alice", "hash", models.RoleUser)
	require.NoError(t, err)
	f := newFile("report")
	require.NoError(t, s.CreateFile(ctx, f))
	assert.Equal(t, 1, f.ID)

	s, err = Open(path)
	require.NoError(t, err)

	u, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.PasswordHash)

	got, err := s.GetFileByLocator(ctx, "loc-report")
	require.NoError(t, err)
	assert.Equal(t, "report", got.DisplayName)
	assert.True(t, f.UploadedAt.Equal(got.UploadedAt))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"storage_locator": "loc-report"`)
	assert.Contains(t, string(data), `"password_hash": "hash"`)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "filedrop.json"))
	require.NoError(t, err)

	alice, err := s.CreateUser(ctx, "alice", "h1", models.RoleUser)
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "alice", "h2", models.RoleUser)
	assert.ErrorIs(t, err, models.ErrDuplicateUsername)

	_, err = s.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.DeleteUser(ctx, alice.ID))
	require.NoError(t, s.DeleteUser(ctx, alice.ID))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSearchAndDeleteFiles(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "filedrop.json"))
	require.NoError(t, err)

	for _, name := range []string{"report", "budget", "reporting"} {
		require.NoError(t, s.CreateFile(ctx, newFile(name)))
	}

	all, err := s.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{all[0].ID, all[1].ID, all[2].ID})

	hits, err := s.SearchFiles(ctx, "REPORT")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "report", hits[0].DisplayName)
	assert.Equal(t, "reporting", hits[1].DisplayName)

	removed, err := s.DeleteFile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "report", removed.DisplayName)

	_, err = s.DeleteFile(ctx, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.DeleteFile(ctx, 42)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.GetFile(ctx, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)

	hits, err = s.SearchFiles(ctx, "report")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "reporting", hits[0].DisplayName)
}

func TestDeletedIDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "filedrop.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.CreateFile(ctx, newFile("first")))
	second := newFile("second")
	require.NoError(t, s.CreateFile(ctx, second))
	_, err = s.DeleteFile(ctx, second.ID)
	require.NoError(t, err)

	// the counter survives a reopen
	s, err = Open(path)
	require.NoError(t, err)
	third := newFile("third")
	require.NoError(t, s.CreateFile(ctx, third))
	assert.Equal(t, 3, third.ID)

	alice, err := s.CreateUser(ctx, "alice", "h", models.RoleUser)
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, "bob", "h", models.RoleUser)
	require.NoError(t, err)
	require.NoError(t, s.DeleteUser(ctx, bob.ID))
	carol, err := s.CreateUser(ctx, "carol", "h", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, alice.ID+2, carol.ID)
}

func TestLegacyDocumentWithoutCounters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "filedrop.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [], "files": [{"id": 7, "display_name": "old"}]}`), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	f := newFile("new")
	require.NoError(t, s.CreateFile(ctx, f))
	assert.Equal(t, 8, f.ID)
}

func TestConcurrentCreatesKeepEveryRecord(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "filedrop.json"))
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.CreateFile(ctx, newFile(fmt.Sprintf("file%d", i))))
		}(i)
	}
	wg.Wait()

	all, err := s.ListFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)

	seen := map[int]bool{}
	for _, f := range all {
		assert.False(t, seen[f.ID], "duplicate id %d", f.ID)
		seen[f.ID] = true
	}
}
