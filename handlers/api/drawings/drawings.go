package drawings

import (
	"encoding/json"
	"errors"
	"excalidraw-drawings/core"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Notifier is told about every successful mutation.
type Notifier interface {
	DrawingChanged(action, id string)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Routes serves the drawings collection: mount it at /drawings.
func Routes(repo core.DrawingRepository, notifier Notifier) chi.Router {
	r := chi.NewRouter()
	r.Get("/", HandleList(repo))
	r.Post("/", HandleCreate(repo, notifier))
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", HandleGet(repo))
		r.Put("/", HandleUpdate(repo, notifier))
		r.Delete("/", HandleDelete(repo, notifier))
	})
	return r
}

func respondError(w http.ResponseWriter, r *http.Request, status int, errorType, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: errorType, Message: message})
}

// respondRepoError maps repository errors to a response.
func respondRepoError(w http.ResponseWriter, r *http.Request, err error, fields logrus.Fields) {
	if errors.Is(err, core.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "Drawing not found")
		return
	}
	logrus.WithFields(fields).WithError(err).Error("Drawing repository failed")
	respondError(w, r, http.StatusInternalServerError, "internal_error", "Internal server error")
}

func notify(notifier Notifier, action, id string) {
	if notifier != nil {
		notifier.DrawingChanged(action, id)
	}
}

// validateName returns the trimmed name or a message describing the problem.
func validateName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "Drawing name cannot be empty"
	}
	if utf8.RuneCountInString(name) > core.MaxNameLength {
		return "", "Drawing name exceeds maximum length of " + strconv.Itoa(core.MaxNameLength) + " characters"
	}
	return name, ""
}

func queryInt(r *http.Request, key string, fallback int, valid func(int) bool) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || !valid(v) {
		return fallback
	}
	return v
}

// MaxListLimit caps the page size of HandleList.
const MaxListLimit = 100

// HandleList serves GET /drawings?limit=&offset=. Missing or invalid values
// fall back to limit 10 and offset 0. Larger limits are capped at MaxListLimit.
func HandleList(repo core.DrawingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := min(queryInt(r, "limit", 10, func(v int) bool { return v > 0 }), MaxListLimit)
		offset := queryInt(r, "offset", 0, func(v int) bool { return v >= 0 })

		drawings, total, err := repo.ListDrawings(r.Context(), limit, offset)
		if err != nil {
			respondRepoError(w, r, err, logrus.Fields{"limit": limit, "offset": offset})
			return
		}
		if drawings == nil {
			drawings = []*core.RemoteDrawing{}
		}

		render.JSON(w, r, core.DrawingList{
			Drawings: drawings,
			Total:    total,
			Limit:    limit,
			Offset:   offset,
		})
	}
}

func HandleGet(repo core.DrawingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		drawing, err := repo.GetDrawing(r.Context(), id)
		if err != nil {
			respondRepoError(w, r, err, logrus.Fields{"drawing_id": id})
			return
		}
		render.JSON(w, r, drawing)
	}
}

func HandleCreate(repo core.DrawingRepository, notifier Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req core.CreateDrawingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid_request", "Invalid JSON format")
			return
		}
		defer r.Body.Close()

		name, problem := validateName(req.Name)
		if problem != "" {
			respondError(w, r, http.StatusBadRequest, "invalid_name", problem)
			return
		}
		if req.Data == nil {
			respondError(w, r, http.StatusBadRequest, "invalid_data", "Drawing data must be an object")
			return
		}

		drawing := &core.RemoteDrawing{Name: name, Data: req.Data}
		if err := repo.CreateDrawing(r.Context(), drawing); err != nil {
			respondRepoError(w, r, err, logrus.Fields{"name": name})
			return
		}

		logrus.WithFields(logrus.Fields{"drawing_id": drawing.ID, "name": name}).Info("Drawing created")
		notify(notifier, ActionCreated, drawing.ID)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, drawing)
	}
}

// HandleUpdate applies a partial update: absent fields keep their value.
func HandleUpdate(repo core.DrawingRepository, notifier Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req core.UpdateDrawingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid_request", "Invalid JSON format")
			return
		}
		defer r.Body.Close()

		if req.Name == nil && req.Data == nil {
			respondError(w, r, http.StatusBadRequest, "invalid_request", "Nothing to update")
			return
		}

		drawing, err := repo.GetDrawing(r.Context(), id)
		if err != nil {
			respondRepoError(w, r, err, logrus.Fields{"drawing_id": id})
			return
		}

		if req.Name != nil {
			name, problem := validateName(*req.Name)
			if problem != "" {
				respondError(w, r, http.StatusBadRequest, "invalid_name", problem)
				return
			}
			drawing.Name = name
		}
		if req.Data != nil {
			drawing.Data = req.Data
		}

		if err := repo.UpdateDrawing(r.Context(), drawing); err != nil {
			respondRepoError(w, r, err, logrus.Fields{"drawing_id": id})
			return
		}

		logrus.WithField("drawing_id", id).Info("Drawing updated")
		notify(notifier, ActionUpdated, id)
		render.JSON(w, r, drawing)
	}
}

func HandleDelete(repo core.DrawingRepository, notifier Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := repo.DeleteDrawing(r.Context(), id); err != nil {
			respondRepoError(w, r, err, logrus.Fields{"drawing_id": id})
			return
		}

		logrus.WithField("drawing_id", id).Info("Drawing deleted")
		notify(notifier, ActionDeleted, id)
		w.WriteHeader(http.StatusNoContent)
	}
}
