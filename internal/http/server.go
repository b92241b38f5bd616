package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"budget/internal/auth"
	"budget/internal/chart"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/reporting"
	"budget/internal/services"
	appweb "budget/web"
)

// Pinger is the readiness probe's view of the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Ledger  *services.LedgerService
	Reports *reporting.Service
	Auth    *auth.Service
	Chart   *chart.Renderer
	DB      Pinger
	Logger  *log.Logger

	SecureCookies bool
	// LoginRateLimit is the number of login attempts per client IP per minute.
	LoginRateLimit int
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    *services.LedgerService
	reports   *reporting.Service
	auth      *auth.Service
	chart     *chart.Renderer
	db        Pinger
	logger    *log.Logger
	cookies   auth.CookieWriter

	detector     *security.Detector
	loginLimiter *ratelimit.Limiter
	shutdownOnce sync.Once
}

var templateFuncs = template.FuncMap{
	"money":      func(m core.Money) string { return m.String() },
	"idstr":      func(id int64) string { return strconv.FormatInt(id, 10) },
	"monthName":  func(m int) string { return time.Month(m).String() },
	"fieldError": func(fe core.FieldErrors, field string) string { return fe[field] },
}

// NewServer parses the embedded templates and wires the router. It fails
// only when the templates do not parse.
func NewServer(addr string, deps Deps) (*Server, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: deps.LoginRateLimit,
	})

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates:    t,
		ledger:       deps.Ledger,
		reports:      deps.Reports,
		auth:         deps.Auth,
		chart:        deps.Chart,
		db:           deps.DB,
		logger:       logger.WithComponent(log.ComponentHTTP),
		cookies:      auth.CookieWriter{Secure: deps.SecureCookies},
		detector:     security.NewDetector(),
		loginLimiter: limiter,
	}
	s.Handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r.Use(tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(headers.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.Get("/login", s.handleLoginForm)
	r.With(s.loginLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)).
		Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(auth.RequireUser(s.auth))

		r.Get("/", s.withUser(s.handleHome))
		r.Get("/chart.png", s.handleChart)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.withUser(s.handleListExpenses))
			r.Get("/new", s.withUser(s.handleNewExpense))
			r.Post("/new", s.withUser(s.handleCreateExpense))
			r.Get("/{id}/edit", s.withUser(s.handleEditExpense))
			r.Post("/{id}/edit", s.withUser(s.handleUpdateExpense))
			r.Get("/{id}/delete", s.withUser(s.handleConfirmDeleteExpense))
			r.Post("/{id}/delete", s.withUser(s.handleDeleteExpense))
		})
		r.Route("/incomes", func(r chi.Router) {
			r.Get("/", s.withUser(s.handleListIncomes))
			r.Get("/new", s.withUser(s.handleNewIncome))
			r.Post("/new", s.withUser(s.handleCreateIncome))
			r.Get("/{id}/edit", s.withUser(s.handleEditIncome))
			r.Post("/{id}/edit", s.withUser(s.handleUpdateIncome))
			r.Get("/{id}/delete", s.withUser(s.handleConfirmDeleteIncome))
			r.Post("/{id}/delete", s.withUser(s.handleDeleteIncome))
		})

		r.Get("/categories/new", s.withUser(s.handleNewCategory))
		r.Post("/categories/new", s.withUser(s.handleCreateCategory))
		r.Get("/sources/new", s.withUser(s.handleNewSource))
		r.Post("/sources/new", s.withUser(s.handleCreateSource))

		r.Get("/profile", s.withUser(s.handleProfile))
		r.Post("/profile", s.withUser(s.handleUpdateProfile))
		r.Post("/logout", s.handleLogout)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError().Write(w)
	})
	return r
}

// withUser hands the authenticated principal to h explicitly.
func (s *Server) withUser(h func(http.ResponseWriter, *http.Request, auth.Principal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		h(w, r, p)
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Login rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r))
	ErrorResponse(http.StatusTooManyRequests, "Too many login attempts. Please try again later.").Write(w)
}

// Shutdown stops the limiter sweep and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.loginLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
