// Package server exposes the habit tracker over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/verte-zerg/franklin/internal/auth"
	"github.com/verte-zerg/franklin/internal/store"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":5000"
	// DefaultAuthRate is the sign-in rate limit in requests per second.
	DefaultAuthRate = 1.0

	authBurst         = 5
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	maxUploadBytes    = 8 << 20
)

// Options tune a Server.
type Options struct {
	// AdminEmails lists the accounts that get admin rights on sign-in.
	AdminEmails []string
	// CORSOrigin is echoed in Access-Control-Allow-Origin. Empty disables CORS.
	CORSOrigin string
	// AuthRate limits sign-in requests per second. Zero means DefaultAuthRate.
	AuthRate float64
	// Now is the clock used for statistics and demo data. Nil means time.Now.
	Now func() time.Time
}

// Server serves the API for one store.
type Server struct {
	store    *store.Store
	issuer   *auth.Issuer
	verifier auth.GoogleVerifier
	logger   *zap.Logger
	opts     Options
	metrics  *metrics
	limiter  *rate.Limiter
	engine   *gin.Engine
}

// New builds a Server and registers its routes.
func New(st *store.Store, issuer *auth.Issuer, verifier auth.GoogleVerifier, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AuthRate <= 0 {
		opts.AuthRate = DefaultAuthRate
	}
	s := &Server{
		store:    st,
		issuer:   issuer,
		verifier: verifier,
		logger:   logger,
		opts:     opts,
		metrics:  newMetrics(),
		limiter:  rate.NewLimiter(rate.Limit(opts.AuthRate), authBurst),
	}

	engine := gin.New()
	// Date keys arrive escaped as DD%2FMM.
	engine.UseRawPath = true
	engine.UnescapePathValues = true
	engine.Use(gin.Recovery(), s.metrics.instrument(), requestLogger(logger))
	if opts.CORSOrigin != "" {
		engine.Use(cors(opts.CORSOrigin))
	}
	s.engine = engine
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) isAdminEmail(email string) bool {
	email = store.NormalizeEmail(email)
	for _, admin := range s.opts.AdminEmails {
		if email != "" && strings.EqualFold(strings.TrimSpace(admin), email) {
			return true
		}
	}
	return false
}
