package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vbonduro/adbuilder/internal/auth"
	"github.com/vbonduro/adbuilder/internal/blobstore"
	"github.com/vbonduro/adbuilder/internal/builder"
	"github.com/vbonduro/adbuilder/internal/export"
	"github.com/vbonduro/adbuilder/internal/qrcode"
	"github.com/vbonduro/adbuilder/internal/service"
)

type Options struct {
	// Origin is the public origin encoded into every code.
	Origin string
	Code   qrcode.Options
	// Media serves /media/*; nil when the blob backend hosts its own objects.
	Media       blobstore.Reader
	Auth        *auth.JWTAuthenticator
	CORSOrigins []string
	Decoder     export.Decoder

	SessionTTL  time.Duration
	MaxSessions int
}

type Server struct {
	service  *service.AdService
	sessions *builder.Sessions
	media    blobstore.Reader
	origin   string
	codeOpts qrcode.Options
	decoder  export.Decoder
	router   chi.Router
	logger   *slog.Logger
}

func NewServer(svc *service.AdService, opts Options, logger *slog.Logger) *Server {
	if opts.Code.Size <= 0 {
		opts.Code = qrcode.DefaultOptions()
	}
	if opts.Decoder == nil {
		opts.Decoder = export.SVGDecoder{}
	}
	s := &Server{
		service: svc,
		sessions: builder.NewSessions(svc, builder.Options{
			Origin:  opts.Origin,
			Code:    opts.Code,
			Decoder: opts.Decoder,
			Logger:  logger,

			SessionTTL:  opts.SessionTTL,
			MaxSessions: opts.MaxSessions,
		}),
		media:    opts.Media,
		origin:   opts.Origin,
		codeOpts: opts.Code,
		decoder:  opts.Decoder,
		logger:   logger,
	}
	s.router = s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Public: printed codes and uploaded media must resolve without a token.
	r.Get("/view", s.handleView)
	r.Get("/media/*", s.handleGetMedia)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(opts.Auth, s.logger))

		r.Route("/builder", func(r chi.Router) {
			r.Get("/", s.handleBuilderState)
			r.Post("/create", s.handleStartCreate)
			r.Post("/designs/{id}/detail", s.handleOpenDetail)
			r.Post("/designs/{id}/edit", s.handleStartEdit)
			r.Delete("/designs/{id}", s.handleBuilderDelete)
			r.Put("/form", s.handleUpdateForm)
			r.Post("/media", s.handleStageMedia)
			r.Post("/save", s.handleSave)
			r.Post("/back", s.handleBack)
			r.Get("/code", s.handleBuilderCode)
		})

		r.Route("/api/designs", func(r chi.Router) {
			r.Get("/", s.handleListDesigns)
			r.Get("/{id}/code", s.handleDesignCode)
		})
	})

	return r
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"img-src 'self' data: https:; "+
				"media-src 'self' https:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.router)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}
