// Package rest exposes the auth and user services over HTTP with chi.
package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/dmitrijs2005/quickmart/internal/server/ratelimit"
	"github.com/dmitrijs2005/quickmart/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*services.TokenPair, error)
	Register(ctx context.Context, fullname, username, email, password, confirm string) (*services.TokenPair, error)
	Verify(ctx context.Context, token string) (*models.Identity, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	SendVerifyEmailOTP(ctx context.Context, userID string) error
	VerifyEmailOTP(ctx context.Context, userID, code string) error
	SendEmailForgotPasswordOTP(ctx context.Context, email string) error
	VerifyForgotPasswordOTP(ctx context.Context, email, code string) (string, error)
	ChangeForgottenPassword(ctx context.Context, otpID, password, confirm string) error
}

type UserService interface {
	GetMe(ctx context.Context, userID string) (*services.Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch services.ProfilePatch) (*services.Profile, error)
	CheckPassword(ctx context.Context, userID, password string) error
	UpdatePassword(ctx context.Context, userID, password, confirm string) error
	UpdateProfilePicture(ctx context.Context, userID string, content io.Reader, contentType string) (*services.Profile, error)
	Delete(ctx context.Context, userID string) error
}

const shutdownTimeout = 10 * time.Second

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	// Limiter guards login, register and OTP dispatch. Nil disables it.
	Limiter ratelimit.Limiter
	// Health reports backend readiness for /healthz. Nil means always ready.
	Health func(ctx context.Context) error
}

type Server struct {
	address string
	auth    AuthService
	users   UserService
	opts    Options
	logger  logging.Logger
	router  chi.Router
}

func NewServer(address string, logger logging.Logger, as AuthService, us UserService, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NopLimiter{}
	}
	s := &Server{
		address: address,
		auth:    as,
		users:   us,
		opts:    opts,
		logger:  logger.With("module", "rest"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMeta(w, http.StatusNotFound, "not_found", "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMeta(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.With(s.rateLimit("register")).Post("/register", s.handleRegister)
		r.With(s.rateLimit("login")).Post("/login", s.handleLogin)
		r.Post("/refresh-token", s.handleRefresh)
		r.Post("/check-token", s.handleCheckToken)

		r.Route("/forgot-password", func(r chi.Router) {
			r.With(s.rateLimit("forgot-password")).Post("/send-otp", s.handleSendForgotPasswordOTP)
			r.With(s.rateLimit("forgot-password-verify")).Post("/verify-otp", s.handleVerifyForgotPasswordOTP)
			r.Post("/change-password", s.handleChangeForgottenPassword)
		})

		r.Route("/verify-email", func(r chi.Router) {
			r.Use(s.authenticate)
			r.With(s.rateLimit("verify-email")).Post("/send-otp", s.handleSendVerifyEmailOTP)
			r.With(s.rateLimit("verify-email-verify")).Post("/verify-otp", s.handleVerifyEmailOTP)
		})
	})

	r.Route("/user/me", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/", s.handleGetMe)
		r.Delete("/", s.handleDeleteMe)
		r.Patch("/profile", s.handleUpdateProfile)
		r.Post("/check-password", s.handleCheckPassword)
		r.Patch("/password", s.handleUpdatePassword)
		r.Put("/profile-picture", s.handleUpdateProfilePicture)
	})

	return r
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. It returns only
// after in-flight requests have finished or shutdownTimeout has passed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-serveErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			writeMeta(w, http.StatusServiceUnavailable, "unavailable", "Service unavailable")
			return
		}
	}
	writeData(w, map[string]string{"status": "ok"})
}
