package handler

import (
	"net/http"

	"hzchat-client/internal/pkg/req"
	"hzchat-client/internal/pkg/resp"
)

type SendMessageInput struct {
	Body string `json:"body"`
}

// HandleSendMessage posts a message to the selected group. The returned
// message is pending until the server echoes it.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SendMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		msg, err := deps.Session.SendMessage(r.Context(), input.Body)
		if err != nil {
			respondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, msg)
	}
}
