package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventboard/internal/delivery/http/helpers"
	"eventboard/internal/domain"
)

// ListUsersResponse is the data payload for GET /admin/users (200).
type ListUsersResponse struct {
	Items      []*domain.User         `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// DeleteUserResponse is the data payload for DELETE /admin/users/{userID} (200).
type DeleteUserResponse struct {
	Status string `json:"status"`
}

type AdminUserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

func NewAdminUserController(logger *slog.Logger, svc domain.UserService) *AdminUserController {
	return &AdminUserController{
		Logger:  logger,
		Service: svc,
	}
}

// ListUsers godoc
// @Summary List users (admin)
// @Description Returns a paginated list of users, optionally restricted to the given ids.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param ids query []int false "User IDs"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/users [get]
func (c *AdminUserController) ListUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := helpers.ParseInt64List(r, "ids")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid ids filter")
		return
	}
	params := helpers.ParsePagination(r)
	users, total, err := c.Service.ListAdmin(r.Context(), ids, params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListUsersResponse{Items: users, Pagination: meta})
}

// CreateUser godoc
// @Summary Create a user (admin)
// @Description Creates a user with the given email, password, and name. Same validation as signup.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SignUpRequest true "User data"
// @Success 201 {object} helpers.APIResponse "data contains the created user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (email already registered)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/users [post]
func (c *AdminUserController) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "email already registered")
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
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}

// DeleteUser godoc
// @Summary Delete a user (admin)
// @Description Deletes a user by ID.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path int true "User ID"
// @Success 200 {object} helpers.APIResponse "data contains status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/users/{userID} [delete]
func (c *AdminUserController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userID")
	if !ok {
		return
	}
	if err := c.Service.DeleteAdmin(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "user not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteUserResponse{Status: "deleted"})
}
