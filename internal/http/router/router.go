package router

import (
	"net/http"

	"filedrop/internal/accounts"
	"filedrop/internal/files"
	"filedrop/internal/http/handlers"
	"filedrop/internal/http/middleware"
	"filedrop/internal/metrics"
	"filedrop/internal/security"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Accounts     *accounts.Service
	Files        *files.Service
	Sessions     *security.SessionManager
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Log          logrus.FieldLogger
	LoginLimiter *middleware.ClientLimiter
	MaxFileSize  int64
}

func Setup(d Deps) (*mux.Router, error) {
	render, err := handlers.NewRenderer(d.Sessions, d.Log)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(middleware.LoadIdentity(d.Sessions), middleware.Observe(d.Log, d.Metrics))

	authHandler := handlers.NewAuthHandler(d.Accounts, d.Sessions, render, d.Metrics, d.Log)
	fileHandler := handlers.NewFileHandler(d.Files, render, d.Metrics, d.Log, d.MaxFileSize)
	adminHandler := handlers.NewAdminHandler(d.Accounts, d.Files, render, d.Log)
	guard := &middleware.Guard{Sessions: d.Sessions, Log: d.Log}
	limit := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RateLimit(d.LoginLimiter, d.Metrics, h)
	}

	r.HandleFunc("/", guard.RequireUser(fileHandler.ListFiles)).Methods("GET")

	r.HandleFunc("/login", authHandler.LoginForm).Methods("GET")
	r.HandleFunc("/login", limit(authHandler.Login)).Methods("POST")
	r.HandleFunc("/register", authHandler.RegisterForm).Methods("GET")
	r.HandleFunc("/register", limit(authHandler.Register)).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("GET")

	r.HandleFunc("/upload", guard.RequireUser(fileHandler.UploadForm)).Methods("GET")
	r.HandleFunc("/upload", guard.RequireUser(fileHandler.UploadFile)).Methods("POST")
	r.HandleFunc("/files/{name}", guard.RequireUser(fileHandler.DownloadFile)).Methods("GET")

	r.HandleFunc("/admin", guard.RequireAdmin(adminHandler.Dashboard)).Methods("GET")
	r.HandleFunc("/delete_user/{id:[0-9]+}", guard.RequireAdmin(adminHandler.DeleteUser)).Methods("GET")
	r.HandleFunc("/delete_file/{id:[0-9]+}", guard.RequireAdmin(adminHandler.DeleteFile)).Methods("GET")

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	r.PathPrefix("/static/").Handler(handlers.Static())

	return r, nil
}
