package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hzchat-client/internal/pkg/errs"
	"hzchat-client/internal/pkg/req"
	"hzchat-client/internal/pkg/resp"
)

// HandleGetView returns the whole display snapshot.
func HandleGetView(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Session.View())
	}
}

// HandleListUsers returns the other users in announcement order.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := deps.Session.View()

		data := map[string]any{
			"selfId":     v.SelfID,
			"otherUsers": v.OtherUsers,
		}
		resp.RespondSuccess(w, r, data)
	}
}

type DirectMessageOutput struct {
	Group string `json:"group"`
}

// HandleDirectMessage opens the direct-message group with the user in the path
// and selects it.
func HandleDirectMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserIDInvalid))
			return
		}

		group, err := deps.Session.RequestDirectMessageGroup(r.Context(), userID)
		if err != nil {
			respondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, DirectMessageOutput{Group: group})
	}
}

type NicknameInput struct {
	Nickname string `json:"nickname"`
}

// HandleSetNickname changes the self nickname.
func HandleSetNickname(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input NicknameInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Session.SetNickname(r.Context(), input.Nickname); err != nil {
			respondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"nickname": deps.Session.View().SelfNickname})
	}
}
