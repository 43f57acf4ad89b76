package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"eventboard/internal/delivery/http/helpers"
	"eventboard/internal/domain"
)

// CategoryRequest is the request body for creating and renaming categories.
type CategoryRequest struct {
	Name string `json:"name"`
}

// Validate implements Validator.
func (c CategoryRequest) Validate() []string {
	var errs []string
	name := strings.TrimSpace(c.Name)
	if name == "" {
		errs = append(errs, "name is required")
	} else if len(name) > 50 {
		errs = append(errs, "name must be at most 50 characters")
	}
	return errs
}

// ListCategoriesResponse is the data payload for GET /categories (200).
type ListCategoriesResponse struct {
	Items      []*domain.Category     `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// DeleteCategoryResponse is the data payload for DELETE /admin/categories/{categoryID} (200).
type DeleteCategoryResponse struct {
	Status string `json:"status"`
}

type CategoryController struct {
	Logger  *slog.Logger
	Service domain.CategoryService
}

func NewCategoryController(logger *slog.Logger, svc domain.CategoryService) *CategoryController {
	return &CategoryController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateCategory godoc
// @Summary Create a category (admin)
// @Description Creates a category. Names are unique; a duplicate name is a conflict.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CategoryRequest true "Category name"
// @Success 201 {object} helpers.APIResponse "data contains the created category"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (duplicate name)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/categories [post]
func (c *CategoryController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	category, err := c.Service.Create(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "category name already in use")
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
	helpers.WriteJSONSuccess(w, http.StatusCreated, category)
}

// UpdateCategory godoc
// @Summary Rename a category (admin)
// @Description Renames a category. Renaming to an existing name is a conflict.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param categoryID path int true "Category ID"
// @Param body body CategoryRequest true "New category name"
// @Success 200 {object} helpers.APIResponse "data contains the updated category"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (duplicate name)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/categories/{categoryID} [patch]
func (c *CategoryController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(w, r, "categoryID")
	if !ok {
		return
	}
	var req CategoryRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	category, err := c.Service.Update(r.Context(), categoryID, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "category not found")
			return
		}
		if errors.Is(err, domain.ErrConflict) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "category name already in use")
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
	helpers.WriteJSONSuccess(w, http.StatusOK, category)
}

// DeleteCategory godoc
// @Summary Delete a category (admin)
// @Description Deletes a category. Fails with a conflict while any event still references it.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param categoryID path int true "Category ID"
// @Success 200 {object} helpers.APIResponse "data contains status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (category in use)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/categories/{categoryID} [delete]
func (c *CategoryController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(w, r, "categoryID")
	if !ok {
		return
	}
	if err := c.Service.Delete(r.Context(), categoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "category not found")
			return
		}
		if errors.Is(err, domain.ErrConflict) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "category still has events")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteCategoryResponse{Status: "deleted"})
}

// GetCategory godoc
// @Summary Get a category
// @Description Returns a single category by ID.
// @Tags public
// @Produce json
// @Param categoryID path int true "Category ID"
// @Success 200 {object} helpers.APIResponse "data contains the category"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /categories/{categoryID} [get]
func (c *CategoryController) GetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(w, r, "categoryID")
	if !ok {
		return
	}
	category, err := c.Service.GetByID(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "category not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, category)
}

// ListCategories godoc
// @Summary List categories
// @Description Returns a paginated list of categories.
// @Tags public
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains items and pagination"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /categories [get]
func (c *CategoryController) ListCategories(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	categories, total, err := c.Service.List(r.Context(), params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListCategoriesResponse{Items: categories, Pagination: meta})
}
