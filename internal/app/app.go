// Package app assembles the server from configuration: storage backends,
// services, sessions, metrics and routes.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"filedrop/internal/accounts"
	"filedrop/internal/blob"
	"filedrop/internal/config"
	"filedrop/internal/db"
	"filedrop/internal/files"
	"filedrop/internal/http/middleware"
	"filedrop/internal/http/router"
	"filedrop/internal/jsonstore"
	"filedrop/internal/metrics"
	"filedrop/internal/security"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// loginIdle is how long a client's login budget is remembered after its last
// attempt.
const loginIdle = 15 * time.Minute

// Repository is what a storage backend must provide: both the credential
// store and the file index.
type Repository interface {
	accounts.Repository
	files.Repository
}

type App struct {
	Accounts *accounts.Service
	Files    *files.Service
	Handler  http.Handler

	close func() error
}

// OpenRepository picks the metadata backend named by cfg.DBDriver.
func OpenRepository(cfg *config.Config) (Repository, func() error, error) {
	switch cfg.DBDriver {
	case config.DriverJSON:
		store, err := jsonstore.Open(cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open json store: %w", err)
		}
		return store, func() error { return nil }, nil
	case config.DriverSQLite, config.DriverPostgres:
		database, err := db.Init(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize database: %w", err)
		}
		return database, database.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported db_driver %q", cfg.DBDriver)
	}
}

// OpenBlobStore picks the byte storage named by cfg.Storage.Backend.
func OpenBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageLocal:
		return blob.NewLocalStore(cfg.Storage.UploadDir)
	case config.StorageS3:
		client, err := blob.NewS3Client(ctx, blob.S3Options{
			Bucket:   cfg.Storage.S3Bucket,
			Region:   cfg.Storage.S3Region,
			Prefix:   cfg.Storage.S3Prefix,
			Endpoint: cfg.Storage.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return blob.NewS3Store(client, cfg.Storage.S3Bucket, cfg.Storage.S3Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// New builds the whole server. reg receives the metrics; pass a fresh
// prometheus.NewRegistry() per App.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger, reg *prometheus.Registry) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, closeRepo, err := OpenRepository(cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := OpenBlobStore(ctx, cfg)
	if err != nil {
		closeRepo()
		return nil, err
	}

	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	acc := accounts.NewService(repo, log.WithField("component", "accounts"))
	fileSvc := files.NewService(repo, blobs, log.WithField("component", "files"))
	fileSvc.OnBlobDeleteFailure(func(error) { m.BlobDeleteErrors.Inc() })

	if err := acc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		closeRepo()
		return nil, fmt.Errorf("create admin account: %w", err)
	}

	loginRate := rate.Limit(cfg.Login.RatePerSecond)
	if loginRate <= 0 {
		loginRate = rate.Inf
	}

	handler, err := router.Setup(router.Deps{
		Accounts:     acc,
		Files:        fileSvc,
		Sessions:     security.NewSessionManager(cfg.Secret, cfg.CookieSecure),
		Metrics:      m,
		Gatherer:     reg,
		Log:          log,
		LoginLimiter: middleware.NewClientLimiter(loginRate, cfg.Login.Burst, loginIdle),
		MaxFileSize:  cfg.MaxUploadBytes(),
	})
	if err != nil {
		closeRepo()
		return nil, err
	}

	return &App{
		Accounts: acc,
		Files:    fileSvc,
		Handler:  handler,
		close:    closeRepo,
	}, nil
}

func (a *App) Close() error {
	return a.close()
}
