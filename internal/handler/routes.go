package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/johndosdos/msglog/internal"
	ratelimiter "github.com/johndosdos/msglog/internal/rate_limiter"
)

type Tokens interface {
	TokenIssuer
	internal.TokenVerifier
}

// Deps are the collaborators the routes are served by. Limiter may be nil.
type Deps struct {
	Users    AccountService
	Tokens   Tokens
	Messages MessageService
	Files    FileService
	DB       Pinger
	Limiter  *ratelimiter.IPRateLimiter

	MaxUploadBytes int64
	PublicURL      string
	CORSOrigin     string
	// TrustProxy takes the client address from forwarding headers.
	TrustProxy bool
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(internal.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(internal.CORS(d.CORSOrigin))

	r.Get("/healthz", Health(d.DB))
	r.Get("/files/{filename}", DownloadFile(d.Files))

	r.Route("/users", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		r.Post("/register", Register(d.Users))
		r.Post("/login", Login(d.Users, d.Tokens))
	})

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return internal.Middleware(next, d.Tokens)
		})

		r.Post("/messages", CreateMessage(d.Messages, d.MaxUploadBytes, d.PublicURL))
		r.Get("/messages", ListMessages(d.Messages, d.PublicURL))
		r.Delete("/messages", DeleteAllMessages(d.Messages))
		r.Get("/messages/search", SearchMessages(d.Messages, d.PublicURL))
		r.Get("/messages/type", MessagesByType(d.Messages, d.PublicURL))
		r.Put("/messages/{id}", UpdateMessage(d.Messages))
		r.Delete("/messages/{id}", DeleteMessage(d.Messages))
	})

	return r
}
