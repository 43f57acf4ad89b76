package controllers

import (
	"net/http"
	"strconv"

	h "eventboard/internal/delivery/http/helpers"
)

// parseIDParam reads a numeric path value. On a missing or malformed value it
// writes a 400 JSON error and returns false.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.PathValue(name)
	if raw == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing "+name)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
