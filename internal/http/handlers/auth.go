package handlers

import (
	"errors"
	"net/http"

	"filedrop/internal/accounts"
	"filedrop/internal/metrics"
	"filedrop/internal/models"
	"filedrop/internal/security"
	"filedrop/internal/validation"

	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	accounts *accounts.Service
	sessions *security.SessionManager
	render   *Renderer
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

func NewAuthHandler(acc *accounts.Service, sessions *security.SessionManager, render *Renderer, m *metrics.Metrics, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		accounts: acc,
		sessions: sessions,
		render:   render,
		metrics:  m,
		log:      log,
	}
}

func credentialsFrom(r *http.Request) validation.Credentials {
	return validation.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "register.html", "Register", nil)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds := credentialsFrom(r)
	if err := validation.Struct(creds); err != nil {
		h.render.Redirect(w, r, "/register", err.Error())
		return
	}

	_, err := h.accounts.Register(r.Context(), creds.Username, creds.Password)
	switch {
	case errors.Is(err, models.ErrDuplicateUsername):
		h.render.Redirect(w, r, "/register", "Username already exists!")
		return
	case err != nil:
		h.log.WithError(err).WithField("user", creds.Username).Error("registration failed")
		h.render.Redirect(w, r, "/register", "Could not create the account, please try again.")
		return
	}

	h.render.Redirect(w, r, "/login", "Account created successfully!")
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := security.IdentityFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render.Render(w, r, http.StatusOK, "login.html", "Log in", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds := credentialsFrom(r)

	user, err := h.accounts.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if !errors.Is(err, accounts.ErrInvalidCredentials) {
			h.log.WithError(err).Error("login lookup failed")
		}
		h.metrics.Logins.WithLabelValues("failure").Inc()
		h.render.Redirect(w, r, "/login", "Invalid credentials")
		return
	}

	id := models.Identity{Username: user.Username, Role: user.Role}
	if err := h.sessions.Establish(w, r, id); err != nil {
		h.log.WithError(err).Error("failed to save session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.Logins.WithLabelValues("success").Inc()
	h.log.WithFields(logrus.Fields{"user": id.Username, "role": id.Role}).Info("logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.log.WithError(err).Error("failed to clear session")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
