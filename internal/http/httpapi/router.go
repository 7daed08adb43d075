package httpapi

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"scenestudio/internal/http/handlers"
	"scenestudio/internal/infra"
	"scenestudio/internal/middleware"
)

// Options carries everything the router wires together.
type Options struct {
	App    *handlers.App
	Logger infra.Logger
	Config *infra.Config
	Static fs.FS
}

// NewRouter assembles the API routes, the middleware chain and the embedded
// page.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.Config.AllowedOrigins),
		middleware.Locale(opts.Config.DefaultLocale),
	)

	app := opts.App
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.Config.RateLimitPerMin))

		r.Get("/healthz", app.Health)
		r.Get("/presets", app.Presets)
		r.Get("/state", app.State)
		r.Post("/state", app.UpdateState)
		r.Post("/uploads", app.UploadsAdd)
		r.Delete("/uploads/{id}", app.UploadRemove)
		r.Get("/uploads/{id}/preview", app.UploadPreview)
		r.Post("/generate", app.Generate)
		r.Post("/script", app.Script)
		r.Get("/result/image", app.ResultImage)
		r.Get("/result/bundle", app.ResultBundle)
		r.Post("/reset", app.Reset)
	})

	if opts.Static != nil {
		r.Handle("/*", pageHandler(opts.Static))
	}

	return r
}

// pageHandler serves the embedded page, falling back to index.html for any
// path with no matching file.
func pageHandler(static fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(static))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			f, err := static.Open(strings.TrimPrefix(r.URL.Path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				_ = f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}
