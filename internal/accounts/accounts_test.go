package accounts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"filedrop/internal/jsonstore"
	"filedrop/internal/models"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *jsonstore.Store) {
	t.Helper()
	store, err := jsonstore.Open(filepath.Join(t.TempDir(), "filedrop.json"))
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	return NewService(store, log), store
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	user, err := svc.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "pw1", user.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "bob", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateKeepsOriginal(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, models.ErrDuplicateUsername)

	_, err = svc.Authenticate(ctx, "alice", "pw1")
	assert.NoError(t, err)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUsernamesAreCaseSensitive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Alice", "pw2")
	assert.NoError(t, err)
}

func TestCreateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, "", "pw", models.RoleUser)
	assert.Error(t, err)

	_, err = svc.Create(ctx, "alice", "pw", models.Role("owner"))
	assert.Error(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, svc.EnsureAdmin(ctx, "root", "secret"))
	root, err := store.GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, root.Role)

	// a second run with another password leaves the account alone
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "other"))
	_, err = svc.Authenticate(ctx, "root", "secret")
	assert.NoError(t, err)
}

func TestDeleteLeavesFilesInPlace(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	alice, err := svc.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.NoError(t, store.CreateFile(ctx, &models.File{
		DisplayName:      "report",
		Category:         "Docs",
		OriginalFilename: "r.pdf",
		Locator:          "loc-1",
		UploadedBy:       "alice",
		UploadedAt:       time.Now().UTC(),
	}))

	require.NoError(t, svc.Delete(ctx, alice.ID))

	_, err = svc.Authenticate(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	files, err := store.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "alice", files[0].UploadedBy)
}
