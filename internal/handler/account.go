package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/johndosdos/msglog/internal/model"
	"github.com/johndosdos/msglog/internal/service"
)

type AccountService interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
}

type TokenIssuer interface {
	IssueToken(userID uuid.UUID) (string, error)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	err := decodeBody(w, r, &c, func(get func(string) string) {
		c.Username = get("username")
		c.Password = get("password")
	})

	return c, err
}

// Register handles user account creation.
func Register(users AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		creds, err := readCredentials(w, r)
		if err != nil {
			writeError(w, r, err, "")
			return
		}

		user, err := users.Register(ctx, creds.Username, creds.Password)
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			writeMessage(w, r, http.StatusConflict, "Username and password are required")
			return
		case errors.Is(err, model.ErrConflict):
			writeMessage(w, r, http.StatusConflict, "User with this username already exists")
			return
		case err != nil:
			writeError(w, r, err, "")
			return
		}

		slog.InfoContext(ctx, "user signed up",
			slog.String("username", user.Username))

		writeJSON(w, r, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
	}
}

// Login checks the credentials and returns a bearer token.
func Login(users AccountService, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		creds, err := readCredentials(w, r)
		if err != nil {
			writeError(w, r, err, "")
			return
		}

		user, err := users.Authenticate(ctx, creds.Username, creds.Password)
		if err != nil {
			writeError(w, r, err, "")
			return
		}

		token, err := tokens.IssueToken(user.ID)
		if err != nil {
			writeError(w, r, err, "")
			return
		}

		slog.InfoContext(ctx, "user logged in",
			slog.String("username", user.Username))

		writeJSON(w, r, http.StatusOK, map[string]any{
			"token": token,
			"user":  userResponse{ID: user.ID, Username: user.Username},
		})
	}
}
