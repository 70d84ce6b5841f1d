package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/domainimport/domainimport/internal/auth"
	"github.com/domainimport/domainimport/internal/importer"
	"github.com/domainimport/domainimport/internal/job"
	"github.com/domainimport/domainimport/internal/logging"
)

const (
	msgUploaded     = "上传成功"
	msgUploadFailed = "上传失败"
	msgTooLarge     = "文件过大"
	msgServerError  = "服务器异常"

	maxFieldBytes = 4 << 10
)

// Service is the import coordinator as seen by the HTTP layer.
type Service interface {
	Submit(ctx context.Context, u importer.Upload) (string, error)
	Status(id string) (job.Snapshot, error)
	List() []job.Snapshot
	Subscribe(id string) (chan importer.Event, job.Snapshot, error)
	Unsubscribe(id string, ch chan importer.Event)
}

// Options configure the router.
type Options struct {
	MaxUploadBytes  int64
	UploadRateLimit int
	CORSOrigins     []string
}

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	svc  Service
	auth auth.Service
	opts Options
}

// NewHandler constructs a Handler with the given dependencies.
func NewHandler(svc Service, authSvc auth.Service, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 1 << 30
	}
	return &Handler{svc: svc, auth: authSvc, opts: opts}
}

// Routes builds the router. /health is the only unauthenticated route.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging)
	r.Use(middleware.Recoverer)
	r.Use(CORS(h.opts.CORSOrigins))

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(Auth(h.auth))
		r.With(RateLimit(h.opts.UploadRateLimit)).Post("/upload", h.Upload)
		r.Get("/tasks", h.ListTasks)
		r.Get("/task/{id}", h.GetTask)
		r.Get("/task/{id}/sse", h.StreamSSE)
	})
	return r
}

// uploadResponse is the body of every POST /upload reply.
type uploadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TaskID  string `json:"task_id,omitempty"`
}

// taskView is a snapshot with its id, as listed by GET /tasks and streamed over SSE.
type taskView struct {
	TaskID string `json:"task_id"`
	job.Snapshot
}

// Upload handles POST /upload. The first file part is imported; optional
// "title" and "callback_url" fields may appear anywhere in the form.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)

	u, found, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, uploadResponse{Status: "fail", Message: msgTooLarge})
			return
		}
		log.Warn("upload: read multipart", "error", err)
		writeJSON(w, http.StatusBadRequest, uploadResponse{Status: "fail", Message: msgUploadFailed})
		return
	}
	if !found {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Status: "fail", Message: msgUploadFailed})
		return
	}

	id, err := h.svc.Submit(r.Context(), u)
	if err != nil {
		if job.KindOf(err) == job.KindParse {
			var je *job.Error
			errors.As(err, &je)
			writeJSON(w, http.StatusUnprocessableEntity, uploadResponse{Status: "fail", Message: je.Reason()})
			return
		}
		log.Error("upload: submit", "file", u.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, uploadResponse{Status: "fail", Message: msgServerError})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Status: "success", Message: msgUploaded, TaskID: id})
}

// readUpload walks the multipart body. found is false when no file part exists.
func readUpload(r *http.Request) (u importer.Upload, found bool, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return u, false, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return u, found, nil
		}
		if err != nil {
			return u, false, err
		}
		if err := readPart(part, &u, &found); err != nil {
			return u, false, err
		}
	}
}

func readPart(part *multipart.Part, u *importer.Upload, found *bool) error {
	defer part.Close()

	if part.FileName() != "" {
		if *found {
			return nil
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, part); err != nil {
			return err
		}
		u.Filename = part.FileName()
		u.Data = buf.Bytes()
		*found = true
		return nil
	}

	switch part.FormName() {
	case "title", "callback_url":
		v, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
		if err != nil {
			return err
		}
		if part.FormName() == "title" {
			u.Title = string(v)
		} else {
			u.CallbackURL = string(v)
		}
	}
	return nil
}

// GetTask handles GET /task/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Status(chi.URLParam(r, "id"))
	if err != nil {
		if importer.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListTasks handles GET /tasks, newest first.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	snaps := h.svc.List()
	tasks := make([]taskView, len(snaps))
	for i, s := range snaps {
		tasks[i] = taskView{TaskID: s.ID, Snapshot: s}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"total": len(tasks),
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
