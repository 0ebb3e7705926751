package main

import (
	"context"
	"path/filepath"
	"testing"

	"filedrop/internal/app"
	"filedrop/internal/config"
	"filedrop/internal/logging"
	"filedrop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBDriver = config.DriverJSON
	cfg.DBDSN = filepath.Join(t.TempDir(), "filedrop.json")
	return cfg
}

func TestUseraddCreatesAccount(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	require.NoError(t, useradd(ctx, cfg, logging.Discard(), "root", "secret", models.RoleAdmin))

	repo, closeRepo, err := app.OpenRepository(cfg)
	require.NoError(t, err)
	defer closeRepo()
	u, err := repo.GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestUseraddRejectsInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	for _, tt := range []struct{ username, password string }{
		{"bob", ""},
		{"   ", "secret"},
	} {
		assert.Error(t, useradd(ctx, cfg, logging.Discard(), tt.username, tt.password, models.RoleUser))
	}

	repo, closeRepo, err := app.OpenRepository(cfg)
	require.NoError(t, err)
	defer closeRepo()
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
