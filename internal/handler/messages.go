package handler

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/johndosdos/msglog/internal/auth"
	"github.com/johndosdos/msglog/internal/model"
	"github.com/johndosdos/msglog/internal/service"
)

const msgNotFound = "Message not found"

type MessageService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in service.NewMessage) (*model.Message, error)
	List(ctx context.Context, ownerID uuid.UUID, page int) ([]*model.Message, error)
	ListByType(ctx context.Context, ownerID uuid.UUID, rawType string) ([]*model.Message, error)
	Search(ctx context.Context, ownerID uuid.UUID, term string) ([]*model.Message, error)
	UpdateCreatedAt(ctx context.Context, id int64, ownerID uuid.UUID, rawDate string) error
	Delete(ctx context.Context, id int64, ownerID uuid.UUID) error
	DeleteAll(ctx context.Context, ownerID uuid.UUID) (int64, error)
	TooLarge() error
}

// owner returns the authenticated user. The auth middleware guarantees one
// is present; a missing one is answered like a bad token.
func owner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		writeMessage(w, r, http.StatusUnauthorized, "Invalid token")
		return uuid.UUID{}, false
	}

	return userID, true
}

// CreateMessage accepts multipart uploads as well as JSON or urlencoded
// bodies for text messages.
func CreateMessage(msgs MessageService, maxUpload int64, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := owner(w, r)
		if !ok {
			return
		}

		in, cleanup, err := readNewMessage(w, r, msgs, maxUpload)
		defer cleanup()
		if err != nil {
			writeError(w, r, err, msgNotFound)
			return
		}

		msg, err := msgs.Create(r.Context(), userID, in)
		if err != nil {
			writeError(w, r, err, msgNotFound)
			return
		}

		writeJSON(w, r, http.StatusOK, toMessageResponse(msg, baseURL(r, publicURL)))
	}
}

func readNewMessage(w http.ResponseWriter, r *http.Request, msgs MessageService, maxUpload int64) (service.NewMessage, func(), error) {
	var in service.NewMessage
	cleanup := func() {}

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		var body struct {
			Type      string `json:"type"`
			Text      string `json:"text"`
			CreatedAt string `json:"created_at"`
		}
		err := decodeBody(w, r, &body, func(get func(string) string) {
			body.Type = get("type")
			body.Text = get("text")
			body.CreatedAt = get("created_at")
		})
		in = service.NewMessage{Type: body.Type, Text: body.Text, CreatedAt: body.CreatedAt}
		return in, cleanup, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return in, cleanup, msgs.TooLarge()
		}
		return in, cleanup, model.Invalid("Invalid form data")
	}
	cleanup = func() { _ = r.MultipartForm.RemoveAll() }

	in.Type = r.FormValue("type")
	in.Text = r.FormValue("text")
	in.CreatedAt = r.FormValue("created_at")

	f, hdr, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return in, cleanup, model.Invalid("Invalid form data")
	default:
		in.File = &service.Upload{Name: hdr.Filename, Size: hdr.Size, Body: f}
		removeAll := cleanup
		cleanup = func() {
			_ = f.Close()
			removeAll()
		}
	}

	return in, cleanup, nil
}

// parsePage treats a missing or malformed page as the first one.
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}

	return page
}

func ListMessages(msgs MessageService, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := owner(w, r)
		if !ok {
			return
		}

		list, err := msgs.List(r.Context(), userID, parsePage(r.URL.Query().Get("page")))
		if err != nil {
			writeError(w, r, err, msgNotFound)
			return
		}

		writeJSON(w, r, http.StatusOK, toMessageList(list, baseURL(r, publicURL)))
	}
}

func SearchMessages(msgs MessageService, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := owner(w, r)
		if !ok {
			return
		}

		list, err := msgs.Search(r.Context(), userID, r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, r, err, msgNotFound)
			return
		}

		writeJSON(w, r, http.StatusOK, toMessageList(list, baseURL(r, publicURL)))
	}
}

func MessagesByType(msgs MessageService, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := owner(w, r)
		if !ok {
			return
		}

		list, err := msgs.ListByType(r.Context(), userID, r.URL.Query().Get("type"))
		if err != nil {
			writeError(w, r, err, msgNotFound)
			return
		}

		writeJSON(w, r, http.StatusOK, toMessageList(list, baseURL(r, publicURL)))
	}
}

// messageID reads {id}. Anything that is not a positive integer cannot
// name a message, so it is answered with 404.
func messageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeMessage(w, r, http.StatusNotFound, msgNotFound)
		return 0, false
	}

	return id, true
}

func UpdateMessage(msgs MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := owner(w, r)
		if !ok {
			return
		}
		id, ok := messageID(w, r)
		if !ok {
			return
		}

		var body struct {
			CreatedAt string `json:"created_at"`
		}
		err := decodeBody(w, r, &body, func(get func(string) string) {
			body.CreatedAt = get("created_at")
		})
		if err != nil {
			writeError(w, r, err, msgNotFound)
			return
		}

		if err := msgs.UpdateCreatedAt(r.Context(), id, userID, body.CreatedAt); err != nil {
			writeError(w, r, err, msgNotFound)
			return
		}

		writeText(w, http.StatusOK, fmt.Sprintf("Message with id %d updated successfully", id))
	}
}

func DeleteMessage(msgs MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := owner(w, r)
		if !ok {
			return
		}
		id, ok := messageID(w, r)
		if !ok {
			return
		}

		if err := msgs.Delete(r.Context(), id, userID); err != nil {
			writeError(w, r, err, msgNotFound)
			return
		}

		writeText(w, http.StatusOK, fmt.Sprintf("Message with id %d deleted", id))
	}
}

func DeleteAllMessages(msgs MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := owner(w, r)
		if !ok {
			return
		}

		if _, err := msgs.DeleteAll(r.Context(), userID); err != nil {
			writeError(w, r, err, msgNotFound)
			return
		}

		writeText(w, http.StatusOK, "All messages and their associated files deleted")
	}
}
