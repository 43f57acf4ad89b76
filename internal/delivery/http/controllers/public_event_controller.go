package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"eventboard/internal/delivery/http/helpers"
	"eventboard/internal/domain"
)

type PublicEventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewPublicEventController(logger *slog.Logger, svc domain.EventService) *PublicEventController {
	return &PublicEventController{
		Logger:  logger,
		Service: svc,
	}
}

// ListEvents godoc
// @Summary Search published events
// @Description Returns published events matching the filters. Text searches annotation and description case-insensitively. Without range_start only upcoming events are returned. Each call is recorded with the stats collaborator.
// @Tags public
// @Produce json
// @Param text query string false "Text to search in annotation and description"
// @Param categories query []int false "Category IDs"
// @Param paid query bool false "Paid events only (true) or free only (false)"
// @Param range_start query string false "Event date range start (YYYY-MM-DD HH:MM:SS)"
// @Param range_end query string false "Event date range end (YYYY-MM-DD HH:MM:SS)"
// @Param only_available query bool false "Only events with free capacity"
// @Param sort query string false "EVENT_DATE to sort by event date"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data is an array of events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *PublicEventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	categories, err := helpers.ParseInt64List(r, "categories")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid categories filter")
		return
	}
	paid, err := helpers.ParseBoolParam(r, "paid")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid paid filter")
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
	onlyAvailable, err := helpers.ParseBoolParam(r, "only_available")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid only_available")
		return
	}
	filter := domain.PublicEventFilter{
		Text:       strings.TrimSpace(r.URL.Query().Get("text")),
		Categories: categories,
		Paid:       paid,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
		SortByDate: r.URL.Query().Get("sort") == "EVENT_DATE",
	}
	if onlyAvailable != nil {
		filter.OnlyAvailable = *onlyAvailable
	}
	params := helpers.ParsePagination(r)
	view := domain.ViewContext{URI: r.URL.Path, CallerAddr: helpers.ClientIP(r)}
	events, err := c.Service.ListPublic(r.Context(), filter, params, view)
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

// GetEvent godoc
// @Summary Get a published event
// @Description Returns a published event with its unique view count. Events in any other state are not found. The read is recorded with the stats collaborator.
// @Tags public
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event with views"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *PublicEventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(w, r, "eventID")
	if !ok {
		return
	}
	view := domain.ViewContext{URI: r.URL.Path, CallerAddr: helpers.ClientIP(r)}
	event, err := c.Service.GetPublished(r.Context(), eventID, view)
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
