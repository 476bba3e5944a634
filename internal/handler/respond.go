package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johndosdos/msglog/internal/model"
)

// maxBodyBytes caps non-upload request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", slog.Any("error", err))
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"message": msg})
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

// writeError maps service errors to responses. notFound is the message sent
// for model.ErrNotFound.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(w, r, http.StatusBadRequest, verr.Reason)
	case errors.Is(err, model.ErrNotFound):
		writeMessage(w, r, http.StatusNotFound, notFound)
	case errors.Is(err, model.ErrUnauthorized):
		writeMessage(w, r, http.StatusUnauthorized, "Invalid username or password")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		writeMessage(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeBody fills dst from a JSON body, or from form values through form
// for any other content type.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, form func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return model.Invalid("Invalid request body")
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return model.Invalid("Invalid form data")
	}
	form(r.PostFormValue)

	return nil
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type messageResponse struct {
	ID          int64             `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	Type        model.MessageType `json:"type"`
	Text        *string           `json:"text"`
	File        *string           `json:"file"`
	FileName    *string           `json:"file_name"`
	ContentType *string           `json:"content_type"`
	Size        *int64            `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

// baseURL is publicURL when configured, else the scheme and host the
// request came in on.
func baseURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return publicURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	return scheme + "://" + r.Host
}

func toMessageResponse(msg *model.Message, base string) messageResponse {
	resp := messageResponse{
		ID:          msg.ID,
		UserID:      msg.UserID,
		Type:        msg.Type,
		Text:        msg.Text,
		FileName:    msg.FileName,
		ContentType: msg.ContentType,
		Size:        msg.Size,
		CreatedAt:   msg.CreatedAt,
	}
	if msg.File != nil {
		link := base + "/files/" + *msg.File
		resp.File = &link
	}

	return resp
}

func toMessageList(msgs []*model.Message, base string) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m, base))
	}

	return out
}

// escapeFilename percent-encodes name for a Content-Disposition header.
func escapeFilename(name string) string {
	var b strings.Builder
	for _, c := range []byte(name) {
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteString("%")
		b.WriteByte("0123456789ABCDEF"[c>>4])
		b.WriteByte("0123456789ABCDEF"[c&15])
	}

	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '.' || c == '_' || c == '~'
}
