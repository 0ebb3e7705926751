package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"filedrop/internal/blob"
	"filedrop/internal/files"
	"filedrop/internal/metrics"
	"filedrop/internal/models"
	"filedrop/internal/security"
	"filedrop/internal/validation"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type FileHandler struct {
	files       *files.Service
	render      *Renderer
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
	maxFileSize int64
}

func NewFileHandler(svc *files.Service, render *Renderer, m *metrics.Metrics, log logrus.FieldLogger, maxFileSize int64) *FileHandler {
	return &FileHandler{
		files:       svc,
		render:      render,
		metrics:     m,
		log:         log,
		maxFileSize: maxFileSize,
	}
}

func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")

	list, err := h.files.Search(r.Context(), query)
	if err != nil {
		h.log.WithError(err).Error("failed to list files")
		http.Error(w, "Failed to get files", http.StatusInternalServerError)
		return
	}

	h.render.Render(w, r, http.StatusOK, "index.html", "Files", map[string]interface{}{
		"Files": list,
		"Query": query,
	})
}

func (h *FileHandler) UploadForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "upload.html", "Upload", nil)
}

func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	// Room for the form fields on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.render.Redirect(w, r, "/upload", "File is too large.")
			return
		}
		h.render.Redirect(w, r, "/upload", "No file selected.")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		h.render.Redirect(w, r, "/upload", "File is too large.")
		return
	}

	form := validation.Upload{
		DisplayName: r.FormValue("display_name"),
		Category:    r.FormValue("category"),
		Filename:    header.Filename,
	}
	if err := validation.Struct(form); err != nil {
		h.render.Redirect(w, r, "/upload", err.Error())
		return
	}

	id, _ := security.IdentityFrom(r.Context())
	rec, err := h.files.Upload(r.Context(), files.UploadInput{
		DisplayName:      form.DisplayName,
		Category:         form.Category,
		OriginalFilename: header.Filename,
		UploadedBy:       id.Username,
	}, file)
	if err != nil {
		h.metrics.UploadFailures.Inc()
		h.log.WithError(err).WithField("user", id.Username).Error("upload failed")
		h.render.Redirect(w, r, "/upload", "Upload failed, please try again.")
		return
	}

	h.metrics.Uploads.Inc()
	h.log.WithFields(logrus.Fields{"file_id": rec.ID, "user": id.Username}).Info("file uploaded")
	h.render.Redirect(w, r, "/", "File uploaded successfully!")
}

func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	rc, rec, err := h.files.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, blob.ErrNotExist) || errors.Is(err, blob.ErrInvalidLocator) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		h.log.WithError(err).WithField("locator", name).Error("failed to open file")
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": rec.OriginalFilename,
	}))

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, rec.OriginalFilename, rec.UploadedAt, rs)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		h.log.WithError(err).WithField("locator", name).Warn("download interrupted")
	}
}
