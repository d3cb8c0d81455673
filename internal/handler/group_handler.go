package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"hzchat-client/internal/pkg/errs"
	"hzchat-client/internal/pkg/req"
	"hzchat-client/internal/pkg/resp"
)

type GroupInput struct {
	Name string `json:"name"`
}

// HandleListGroups returns the known groups and the selected one.
func HandleListGroups(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := deps.Session.View()

		data := map[string]any{
			"groups":   v.Groups,
			"selected": v.SelectedGroup,
			"label":    v.GroupLabel,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleJoinGroup asks the server to join or create a group. The group shows
// up in the list once the server announces it.
func HandleJoinGroup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input GroupInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Session.JoinOrCreateGroup(r.Context(), input.Name); err != nil {
			respondErr(w, r, err)
			return
		}

		resp.RespondAccepted(w, r, "join requested")
	}
}

// HandleSelectGroup makes a group the active one.
func HandleSelectGroup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input GroupInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Session.SelectGroup(r.Context(), input.Name); err != nil {
			respondErr(w, r, err)
			return
		}

		v := deps.Session.View()
		resp.RespondSuccess(w, r, map[string]string{"selected": v.SelectedGroup, "label": v.GroupLabel})
	}
}

// HandleGroupMessages returns a group's history, selected or not.
func HandleGroupMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := url.PathUnescape(chi.URLParam(r, "name"))
		if err != nil || name == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrGroupNameInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"group":    name,
			"messages": deps.Session.History(name),
		})
	}
}
