package event_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	events "ms-events/internal/events/service"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

const maxJSONBytes = 1 << 20

var (
	errNoData      = errors.New("No JSON data provided")
	errInvalidJSON = errors.New("Invalid JSON payload")
)

// HealthChecker reports whether the database answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	EventService    *events.EventService
	AttendeeService *events.AttendeeService
	Health          HealthChecker
	Logger          *logger.Logger
	MaxUploadBytes  int64
}

func NewHandler(eventSvc *events.EventService, attendeeSvc *events.AttendeeService, health HealthChecker, log *logger.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		EventService:    eventSvc,
		AttendeeService: attendeeSvc,
		Health:          health,
		Logger:          log,
		MaxUploadBytes:  maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/", h.CreateEvent)
			r.Post("/import-csv", h.ImportCSV)
			r.Get("/{id}", h.GetEvent)
			r.Put("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
			r.Get("/{id}/attendees", h.ListAttendees)
		})
		r.Post("/attendees", h.RegisterAttendee)
		r.Put("/attendees/{id}", h.UpdateAttendee)
		r.Get("/reports/sales", h.SalesReport)
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.Health.Ping(r.Context()); err != nil {
		h.Logger.Error("HEALTH", fmt.Sprintf("Database check failed: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}

// ---------------- EVENTS ----------------

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.EventService.List(r.Context(), q.Get("title"), q.Get("date"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.EventService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	event, err := h.EventService.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	event, err := h.EventService.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.EventService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

// ImportCSV expects a multipart form with the CSV in the "file" field.
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusBadRequest, fmt.Sprintf("File exceeds the %d byte upload limit", h.MaxUploadBytes))
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			utils.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		utils.WriteError(w, http.StatusBadRequest, "Only CSV files allowed")
		return
	}

	result, err := h.EventService.Import(r.Context(), file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) SalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.EventService.SalesReport(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

// ---------------- ATTENDEES ----------------

func (h *Handler) RegisterAttendee(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterAttendeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	attendee, err := h.AttendeeService.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, attendee)
}

func (h *Handler) UpdateAttendee(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateAttendeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	attendee, err := h.AttendeeService.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, attendee)
}

func (h *Handler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	list, err := h.AttendeeService.ListByEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// ---------------- HELPERS ----------------

// decodeJSON rejects an empty body, null and {} with errNoData.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err != nil {
		return errInvalidJSON
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errNoData
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return errInvalidJSON
	}
	if len(fields) == 0 {
		return errNoData
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *events.ValidationError
		notFoundErr   *events.NotFoundError
		conflictErr   *events.ConflictError
		importErr     *events.ImportError
	)

	switch {
	case errors.As(err, &validationErr):
		utils.WriteError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &notFoundErr):
		utils.WriteError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		utils.WriteError(w, http.StatusBadRequest, conflictErr.Message)
	case errors.As(err, &importErr):
		utils.WriteErrorDetails(w, http.StatusBadRequest, importErr.Message, importErr.Details)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
