// Package server exposes the codec service over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dmapctl/internal/auth"
	"github.com/danmuck/dmapctl/internal/codec"
	"github.com/danmuck/dmapctl/internal/observability"
)

const (
	Version         = "0.1.0"
	ContentTypeDMAP = "application/x-dmap-tagged"

	shutdownTimeout = 5 * time.Second
)

type Options struct {
	Name         string
	Addr         string
	CorsOrigins  []string
	MaxBodyBytes int64
	TLSCertFile  string
	TLSKeyFile   string
	// AuthToken, when set, is required as a bearer token on /v1 routes.
	AuthToken string
}

type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	codec   *codec.Service
	router  *gin.Engine
	maxBody int64
	tlsCert string
	tlsKey  string
	auth    auth.Validator
}

func New(svc *codec.Service, opts Options) *Server {
	observability.RegisterMetrics()
	if opts.Name == "" {
		opts.Name = "dmapctl"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.Name))
	allowHeaders := []string{"Origin", "Content-Type"}
	if opts.AuthToken != "" {
		allowHeaders = append(allowHeaders, "Authorization")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: allowHeaders,
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:     opts.Name,
		Addr:     opts.Addr,
		Appeared: time.Now(),
		codec:    svc,
		router:   r,
		maxBody:  opts.MaxBodyBytes,
		tlsCert:  opts.TLSCertFile,
		tlsKey:   opts.TLSKeyFile,
	}
	if opts.AuthToken != "" {
		s.auth = auth.StaticToken{Token: opts.AuthToken}
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on s.Addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln, with TLS when a certificate pair is
// configured, and shuts down gracefully when ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("server", s.Name).
			Str("addr", ln.Addr().String()).
			Bool("tls", s.tlsCert != "").
			Msg("dmap server listening")
		if s.tlsCert != "" {
			errCh <- srv.ServeTLS(ln, s.tlsCert, s.tlsKey)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Str("server", s.Name).Msg("dmap server stopped")
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
