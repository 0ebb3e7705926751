package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filedrop/internal/accounts"
	"filedrop/internal/app"
	"filedrop/internal/config"
	"filedrop/internal/logging"
	"filedrop/internal/models"
	"filedrop/internal/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "filedrop",
		Short:        "Share files with a small group of registered users",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/app.yaml", "path to the YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}

	var (
		password string
		admin    bool
	)
	useraddCmd := &cobra.Command{
		Use:   "useradd USERNAME",
		Short: "Create an account from the command line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			role := models.RoleUser
			if admin {
				role = models.RoleAdmin
			}
			return useradd(cmd.Context(), cfg, log, args[0], password, role)
		},
	}
	useraddCmd.Flags().StringVar(&password, "password", "", "password for the new account")
	useraddCmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	useraddCmd.MarkFlagRequired("password")

	root.AddCommand(serveCmd, useraddCmd)
	root.RunE = serveCmd.RunE
	return root
}

func loadConfig(path string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(path)
	missing := errors.Is(err, os.ErrNotExist)
	if err != nil && !missing {
		return nil, nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}
	if missing {
		log.WithField("path", path).Warn("config file not found, using defaults")
	}
	return cfg, log, nil
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"db":      cfg.DBDriver,
			"storage": cfg.Storage.Backend,
		}).Info("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func useradd(ctx context.Context, cfg *config.Config, log *logrus.Logger, username, password string, role models.Role) error {
	if err := validation.Struct(validation.Credentials{Username: username, Password: password}); err != nil {
		return err
	}

	repo, closeRepo, err := app.OpenRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	acc := accounts.NewService(repo, log)
	user, err := acc.Create(ctx, username, password, role)
	if err != nil {
		return err
	}
	fmt.Printf("created %s (id %d, role %s)\n", user.Username, user.ID, user.Role)
	return nil
}
