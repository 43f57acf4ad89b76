package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventboard/internal/delivery/http/helpers"
	"eventboard/internal/delivery/http/middleware"
	"eventboard/internal/domain"
)

// Field length bounds for event bodies.
const (
	titleMinLen       = 3
	titleMaxLen       = 120
	annotationMinLen  = 20
	annotationMaxLen  = 2000
	descriptionMinLen = 20
	descriptionMaxLen = 7000
)

// LocationBody is the location object in event request bodies.
type LocationBody struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func validateLocation(loc LocationBody) []string {
	var errs []string
	if loc.Lat < -90 || loc.Lat > 90 {
		errs = append(errs, "location.lat must be between -90 and 90")
	}
	if loc.Lon < -180 || loc.Lon > 180 {
		errs = append(errs, "location.lon must be between -180 and 180")
	}
	return errs
}

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title             string       `json:"title"`
	Annotation        string       `json:"annotation"`
	Description       string       `json:"description"`
	CategoryID        int64        `json:"category_id"`
	EventDate         time.Time    `json:"event_date"`
	Location          LocationBody `json:"location"`
	Paid              bool         `json:"paid"`
	ParticipantLimit  int          `json:"participant_limit"`
	RequestModeration *bool        `json:"request_moderation"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if l := len(strings.TrimSpace(c.Title)); l < titleMinLen || l > titleMaxLen {
		errs = append(errs, "title must be between 3 and 120 characters")
	}
	if l := len(strings.TrimSpace(c.Annotation)); l < annotationMinLen || l > annotationMaxLen {
		errs = append(errs, "annotation must be between 20 and 2000 characters")
	}
	if l := len(strings.TrimSpace(c.Description)); l < descriptionMinLen || l > descriptionMaxLen {
		errs = append(errs, "description must be between 20 and 7000 characters")
	}
	if c.CategoryID <= 0 {
		errs = append(errs, "category_id is required")
	}
	if c.EventDate.IsZero() {
		errs = append(errs, "event_date is required")
	}
	if c.ParticipantLimit < 0 {
		errs = append(errs, "participant_limit must be non-negative")
	}
	errs = append(errs, validateLocation(c.Location)...)
	return errs
}

// UpdateEventRequest is the request body for owner and admin event patches.
// All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Title             *string       `json:"title"`
	Annotation        *string       `json:"annotation"`
	Description       *string       `json:"description"`
	CategoryID        *int64        `json:"category_id"`
	EventDate         *time.Time    `json:"event_date"`
	Location          *LocationBody `json:"location"`
	Paid              *bool         `json:"paid"`
	ParticipantLimit  *int          `json:"participant_limit"`
	RequestModeration *bool         `json:"request_moderation"`
	StateAction       *string       `json:"state_action"`
}

// Validate implements Validator. State action vocabulary is checked by the
// owner and admin handlers separately.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Title != nil {
		if l := len(strings.TrimSpace(*u.Title)); l < titleMinLen || l > titleMaxLen {
			errs = append(errs, "title must be between 3 and 120 characters")
		}
	}
	if u.Annotation != nil {
		if l := len(strings.TrimSpace(*u.Annotation)); l < annotationMinLen || l > annotationMaxLen {
			errs = append(errs, "annotation must be between 20 and 2000 characters")
		}
	}
	if u.Description != nil {
		if l := len(strings.TrimSpace(*u.Description)); l < descriptionMinLen || l > descriptionMaxLen {
			errs = append(errs, "description must be between 20 and 7000 characters")
		}
	}
	if u.CategoryID != nil && *u.CategoryID <= 0 {
		errs = append(errs, "category_id must be positive")
	}
	if u.ParticipantLimit != nil && *u.ParticipantLimit < 0 {
		errs = append(errs, "participant_limit must be non-negative")
	}
	if u.Location != nil {
		errs = append(errs, validateLocation(*u.Location)...)
	}
	return errs
}

func (u UpdateEventRequest) patch() domain.EventPatch {
	p := domain.EventPatch{
		Title:             u.Title,
		Annotation:        u.Annotation,
		Description:       u.Description,
		CategoryID:        u.CategoryID,
		EventDate:         u.EventDate,
		Paid:              u.Paid,
		ParticipantLimit:  u.ParticipantLimit,
		RequestModeration: u.RequestModeration,
	}
	if u.Location != nil {
		p.Location = &domain.Location{Lat: u.Location.Lat, Lon: u.Location.Lon}
	}
	return p
}

// ListMyEventsResponse is the data payload for GET /me/events (200).
type ListMyEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Create a new event in the PENDING state. The authenticated user becomes the initiator. The event date must be at least two hours in the future.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown category)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	moderation := true
	if req.RequestModeration != nil {
		moderation = *req.RequestModeration
	}
	input := domain.NewEventInput{
		Title:             strings.TrimSpace(req.Title),
		Annotation:        strings.TrimSpace(req.Annotation),
		Description:       strings.TrimSpace(req.Description),
		CategoryID:        req.CategoryID,
		EventDate:         req.EventDate,
		Location:          domain.Location{Lat: req.Location.Lat, Lon: req.Location.Lon},
		Paid:              req.Paid,
		ParticipantLimit:  req.ParticipantLimit,
		RequestModeration: moderation,
	}
	event, err := c.Service.Create(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "category not found")
			return
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "user not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListMyEvents godoc
// @Summary List events initiated by the current user
// @Description Returns a paginated list of events where the authenticated user is the initiator.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/events [get]
func (c *EventController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.ListByInitiator(r.Context(), userID, params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListMyEventsResponse{Items: events, Pagination: meta})
}

// GetMyEvent godoc
// @Summary Get one of the current user's events
// @Description Returns the full event in any state. Only the initiator can access; other callers get 404.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/events/{eventID} [get]
func (c *EventController) GetMyEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.GetOwn(r.Context(), userID, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateMyEvent godoc
// @Summary Update one of the current user's events
// @Description Patches event fields and optionally applies SEND_TO_REVIEW or CANCEL_REVIEW. Published events cannot be modified by their initiator.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (published, or illegal state action)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/events/{eventID} [patch]
func (c *EventController) UpdateMyEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	upd := domain.OwnerEventUpdate{EventPatch: req.patch()}
	if req.StateAction != nil {
		action := domain.OwnerStateAction(*req.StateAction)
		if action != domain.OwnerActionSendToReview && action != domain.OwnerActionCancelReview {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "state_action must be SEND_TO_REVIEW or CANCEL_REVIEW")
			return
		}
		upd.StateAction = &action
	}
	event, err := c.Service.UpdateByOwner(r.Context(), userID, eventID, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		if errors.Is(err, domain.ErrConflict) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
