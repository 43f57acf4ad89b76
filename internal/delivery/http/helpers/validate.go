package helpers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Validator is implemented by request DTOs. Validate returns one message
// per problem; an empty slice means the body is acceptable.
type Validator interface {
	Validate() []string
}

// DecodeAndValidate decodes the JSON body into dest, rejecting unknown
// fields, then runs Validate when dest implements Validator. On any
// failure it writes a 400 envelope and returns false; the caller must
// stop handling the request in that case.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	v, ok := dest.(Validator)
	if !ok {
		return true
	}
	if errs := v.Validate(); len(errs) > 0 {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, strings.Join(errs, "; "))
		return false
	}
	return true
}
