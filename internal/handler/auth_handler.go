/*
Package handler provides HTTP handler functions for signing in and out.

The identity provider itself lives elsewhere: signing in hands the client a
bearer token it has already obtained, which is checked, persisted and attached
to the next chat connection.
*/
package handler

import (
	"net/http"
	"strings"
	"time"

	"hzchat-client/internal/pkg/auth/jwt"
	"hzchat-client/internal/pkg/errs"
	"hzchat-client/internal/pkg/logx"
	"hzchat-client/internal/pkg/req"
	"hzchat-client/internal/pkg/resp"
)

type SignInInput struct {
	Token string `json:"token"`
}

type SignInOutput struct {
	DisplayName string     `json:"displayName"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// HandleSignIn stores a bearer token and reconnects with it.
func HandleSignIn(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SignInInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token := strings.TrimSpace(input.Token)
		if token == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenInvalid))
			return
		}

		claims, err := jwt.Inspect(token, deps.now())
		if err != nil {
			logx.Warn("Sign-in rejected.", "reason", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenInvalid))
			return
		}

		if err := deps.Tokens.Save(token); err != nil {
			logx.Error(err, "Failed to persist bearer token")
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenStoreFailed))
			return
		}

		if err := deps.Session.SetToken(token); err != nil {
			respondErr(w, r, err)
			return
		}

		out := SignInOutput{DisplayName: claims.DisplayName()}
		if exp := claims.ExpiresAtTime(); !exp.IsZero() {
			out.ExpiresAt = &exp
		}
		resp.RespondSuccess(w, r, out)
	}
}

// HandleSignOut forgets the stored token and reconnects signed out.
func HandleSignOut(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Tokens.Erase(); err != nil {
			logx.Error(err, "Failed to erase bearer token")
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenStoreFailed))
			return
		}

		if err := deps.Session.SetToken(""); err != nil {
			respondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
