package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/johndosdos/msglog/internal/service"
)

type FileService interface {
	Open(ctx context.Context, name string) (*service.Download, error)
}

// DownloadFile streams a stored attachment under the name it was uploaded
// as.
func DownloadFile(files FileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		dl, err := files.Open(ctx, chi.URLParam(r, "filename"))
		if err != nil {
			writeError(w, r, err, "File not found")
			return
		}
		defer dl.Body.Close()

		name := escapeFilename(dl.Name)
		w.Header().Set("Content-Type", dl.ContentType)
		w.Header().Set("Content-Disposition",
			`attachment; filename="`+name+`"; filename*=UTF-8''`+name)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if dl.Size != nil {
			w.Header().Set("Content-Length", strconv.FormatInt(*dl.Size, 10))
		}
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, dl.Body); err != nil {
			slog.WarnContext(ctx, "file download interrupted",
				slog.String("file", chi.URLParam(r, "filename")),
				slog.Any("error", err))
		}
	}
}
