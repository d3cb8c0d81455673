/*
Package resp writes the control API's standard JSON envelope.

Every response is {code, message, data}: code 0 on success, an errs code
otherwise. Failures are logged through the request-scoped logger that
logx.RequestLogger places in the request context.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"hzchat-client/internal/pkg/errs"
)

// JSONResponse is the envelope every control API response uses.
type JSONResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RespondJSON writes payload as JSON with the given status. Session state
// changes under the caller, so responses are never cached.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("http_status", httpStatus).Msg("Failed to encode response.")

		httpStatus = http.StatusInternalServerError
		body, _ = json.Marshal(JSONResponse{Code: errs.ErrUnknown, Message: "Error encoding response."})
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")

	w.WriteHeader(httpStatus)
	if _, err := w.Write(body); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Client went away before the response was written.")
	}
}

// RespondSuccess writes a 200 response carrying data.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{Message: "success", Data: data})
}

// RespondAccepted acknowledges a request whose outcome arrives later from the
// chat server.
func RespondAccepted(w http.ResponseWriter, r *http.Request, message string) {
	RespondJSON(w, r, http.StatusAccepted, JSONResponse{Message: message})
}

// RespondError writes customErr using its status and code. Server-side
// failures are logged with the request.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	if customErr.Status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Warn().
			Int("code", customErr.Code).
			Int("http_status", customErr.Status).
			Msg(customErr.Message)
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{Code: customErr.Code, Message: customErr.Message})
}
