package handlers

import (
	"net/http"
	"strconv"

	"filedrop/internal/accounts"
	"filedrop/internal/files"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	accounts *accounts.Service
	files    *files.Service
	render   *Renderer
	log      logrus.FieldLogger
}

func NewAdminHandler(acc *accounts.Service, svc *files.Service, render *Renderer, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{accounts: acc, files: svc, render: render, log: log}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to list users")
		http.Error(w, "Failed to get users", http.StatusInternalServerError)
		return
	}

	list, err := h.files.List(r.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to list files")
		http.Error(w, "Failed to get files", http.StatusInternalServerError)
		return
	}

	h.render.Render(w, r, http.StatusOK, "admin.html", "Admin", map[string]interface{}{
		"Users": users,
		"Files": list,
	})
}

// DeleteUser leaves the user's files in place.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.render.Redirect(w, r, "/admin", "Invalid user id.")
		return
	}

	if err := h.accounts.Delete(r.Context(), id); err != nil {
		h.log.WithError(err).WithField("user_id", id).Error("failed to delete user")
		h.render.Redirect(w, r, "/admin", "Could not delete the user.")
		return
	}
	h.render.Redirect(w, r, "/admin", "User deleted.")
}

func (h *AdminHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.render.Redirect(w, r, "/admin", "Invalid file id.")
		return
	}

	if err := h.files.Delete(r.Context(), id); err != nil {
		h.log.WithError(err).WithField("file_id", id).Error("failed to delete file")
		h.render.Redirect(w, r, "/admin", "Could not delete the file.")
		return
	}
	h.render.Redirect(w, r, "/admin", "File deleted.")
}

func idParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
