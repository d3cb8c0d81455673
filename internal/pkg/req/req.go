/*
Package req binds control API request bodies into Go values.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"hzchat-client/internal/pkg/errs"
)

// MaxBodyBytes caps a control API request body.
const MaxBodyBytes int64 = 64 << 10

// BindJSON decodes the JSON body of r into dst.
// The content type must be JSON, unknown fields are rejected and exactly one
// JSON document is accepted.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
