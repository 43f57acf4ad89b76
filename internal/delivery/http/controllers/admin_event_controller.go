package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventboard/internal/delivery/http/helpers"
	"eventboard/internal/domain"
)

type AdminEventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewAdminEventController(logger *slog.Logger, svc domain.EventService) *AdminEventController {
	return &AdminEventController{
		Logger:  logger,
		Service: svc,
	}
}

// ListEvents godoc
// @Summary Search events (admin)
// @Description Returns events in any state, filtered by users, states, categories, and an event date range. All filters optional.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param users query []int false "Initiator IDs"
// @Param states query []string false "Event states (PENDING, PUBLISHED, CANCELED, REJECTED)"
// @Param categories query []int false "Category IDs"
// @Param range_start query string false "Event date range start (YYYY-MM-DD HH:MM:SS)"
// @Param range_end query string false "Event date range end (YYYY-MM-DD HH:MM:SS)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data is an array of events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events [get]
func (c *AdminEventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	users, err := helpers.ParseInt64List(r, "users")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid users filter")
		return
	}
	categories, err := helpers.ParseInt64List(r, "categories")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid categories filter")
		return
	}
	rangeStart, err := helpers.ParseTimeParam(r, "range_start")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid range_start")
		return
	}
	rangeEnd, err := helpers.ParseTimeParam(r, "range_end")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid range_end")
		return
	}
	var states []domain.EventState
	for _, s := range r.URL.Query()["states"] {
		switch state := domain.EventState(s); state {
		case domain.EventStatePending, domain.EventStatePublished, domain.EventStateCanceled, domain.EventStateRejected:
			states = append(states, state)
		default:
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid state: "+s)
			return
		}
	}
	filter := domain.AdminEventFilter{
		Users:      users,
		States:     states,
		Categories: categories,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
	}
	params := helpers.ParsePagination(r)
	events, err := c.Service.ListAdmin(r.Context(), filter, params)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// UpdateEvent godoc
// @Summary Moderate an event (admin)
// @Description Patches event fields and optionally applies PUBLISH_EVENT or REJECT_EVENT. Publishing requires the PENDING state; rejecting a published event is a conflict.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (illegal state transition)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID} [patch]
func (c *AdminEventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	upd := domain.AdminEventUpdate{EventPatch: req.patch()}
	if req.StateAction != nil {
		action := domain.AdminStateAction(*req.StateAction)
		if action != domain.AdminActionPublish && action != domain.AdminActionReject {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "state_action must be PUBLISH_EVENT or REJECT_EVENT")
			return
		}
		upd.StateAction = &action
	}
	event, err := c.Service.UpdateByAdmin(r.Context(), eventID, upd)
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
