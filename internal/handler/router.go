/*
Package handler provides the local control API of the chat client.

This file defines the main Router, applying logging, CORS and IP-based rate
limiting before delegating requests to the session, group, message and
sign-in handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"hzchat-client/internal/pkg/errs"
	"hzchat-client/internal/pkg/logx"
	"hzchat-client/internal/pkg/resp"
)

const (
	APIRate  = 20
	APIBurst = 40
)

// Router sets up the control API routing table.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		v := deps.Session.View()

		data := map[string]string{
			"status":     "ok",
			"service":    "HZ Chat Client",
			"connection": string(v.Status),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		if deps.Limiter != nil {
			api.Use(deps.Limiter.Middleware)
		}

		api.Get("/view", HandleGetView(deps))
		api.Get("/users", HandleListUsers(deps))
		api.Post("/users/{id}/dm", HandleDirectMessage(deps))

		api.Route("/groups", func(groups chi.Router) {
			groups.Get("/", HandleListGroups(deps))
			groups.Post("/join", HandleJoinGroup(deps))
			groups.Post("/select", HandleSelectGroup(deps))
			groups.Get("/{name}/messages", HandleGroupMessages(deps))
		})

		api.Post("/messages", HandleSendMessage(deps))
		api.Post("/nickname", HandleSetNickname(deps))

		api.Route("/auth/token", func(auth chi.Router) {
			auth.Post("/", HandleSignIn(deps))
			auth.Delete("/", HandleSignOut(deps))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		resp.RespondJSON(w, r, http.StatusNotFound, resp.JSONResponse{Code: errs.ErrInvalidParams, Message: "Not found."})
	})

	return r
}

// respondErr maps any session error onto the standard envelope.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	resp.RespondError(w, r, errs.From(err))
}
