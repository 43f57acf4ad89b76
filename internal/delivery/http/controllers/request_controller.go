package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventboard/internal/delivery/http/helpers"
	"eventboard/internal/delivery/http/middleware"
	"eventboard/internal/domain"
)

// UpdateEventRequestsRequest is the request body for PATCH /me/events/{eventID}/requests.
type UpdateEventRequestsRequest struct {
	RequestIDs []int64 `json:"request_ids"`
	Status     string  `json:"status"`
}

// Validate implements Validator.
func (u UpdateEventRequestsRequest) Validate() []string {
	var errs []string
	if len(u.RequestIDs) == 0 {
		errs = append(errs, "request_ids is required")
	}
	for _, id := range u.RequestIDs {
		if id <= 0 {
			errs = append(errs, "request_ids must be positive")
			break
		}
	}
	if u.Status != string(domain.RequestStatusConfirmed) && u.Status != string(domain.RequestStatusRejected) {
		errs = append(errs, "status must be CONFIRMED or REJECTED")
	}
	return errs
}

type RequestController struct {
	Logger  *slog.Logger
	Service domain.RequestService
}

func NewRequestController(logger *slog.Logger, svc domain.RequestService) *RequestController {
	return &RequestController{
		Logger:  logger,
		Service: svc,
	}
}

// AddRequest godoc
// @Summary Request participation in an event
// @Description Creates a participation request for the authenticated user. Auto-confirmed when the event has no limit or moderation is off. Duplicate requests, own events, unpublished events, and full events are conflicts.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Success 201 {object} helpers.APIResponse "data contains the created request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/requests [post]
func (c *RequestController) AddRequest(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	req, err := c.Service.AddRequest(r.Context(), userID, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, err.Error())
			return
		}
		if errors.Is(err, domain.ErrConflict) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, req)
}

// CancelRequest godoc
// @Summary Cancel own participation request
// @Description Cancels the authenticated user's request. Cancelling a confirmed request frees a capacity slot. Requests already in a terminal status are conflicts.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param requestID path int true "Request ID"
// @Success 200 {object} helpers.APIResponse "data contains the canceled request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/requests/{requestID}/cancel [patch]
func (c *RequestController) CancelRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseIDParam(w, r, "requestID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	req, err := c.Service.CancelOwnRequest(r.Context(), userID, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "request not found")
			return
		}
		if errors.Is(err, domain.ErrConflict) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, req)
}

// ListMyRequests godoc
// @Summary List own participation requests
// @Description Returns all of the authenticated user's participation requests across events.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of requests"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/requests [get]
func (c *RequestController) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	requests, err := c.Service.ListOwnRequests(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "user not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if requests == nil {
		requests = []*domain.ParticipationRequest{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, requests)
}

// ListEventRequests godoc
// @Summary List participation requests for an owned event
// @Description Returns all participation requests for an event initiated by the authenticated user.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Success 200 {object} helpers.APIResponse "data is an array of requests"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (caller is not the initiator)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/events/{eventID}/requests [get]
func (c *RequestController) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	requests, err := c.Service.ListEventRequests(r.Context(), userID, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
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
	if requests == nil {
		requests = []*domain.ParticipationRequest{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, requests)
}

// UpdateEventRequests godoc
// @Summary Confirm or reject participation requests
// @Description Applies CONFIRMED or REJECTED to the given pending requests on an owned event. Requests are processed in the given order; once capacity fills, remaining requests are rejected. Any non-pending request aborts the whole batch.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param body body UpdateEventRequestsRequest true "Request IDs and target status"
// @Success 200 {object} helpers.APIResponse "data contains confirmed_requests and rejected_requests"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (capacity exhausted or non-pending request)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/events/{eventID}/requests [patch]
func (c *RequestController) UpdateEventRequests(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequestsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	result, err := c.Service.UpdateEventRequests(r.Context(), userID, eventID, req.RequestIDs, domain.RequestStatus(req.Status))
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
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
