package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jonwraymond/wikigraph/auth"
	"github.com/jonwraymond/wikigraph/health"
	"github.com/jonwraymond/wikigraph/lookup"
	"github.com/jonwraymond/wikigraph/observe"
)

// Options configure a Server. Nil fields disable their routes or gates.
type Options struct {
	ServiceName string
	Logger      observe.Logger
	Health      *health.Aggregator
	Gatherer    prometheus.Gatherer
	Auth        auth.Authenticator
	// Debug adds the failing operation to 500 responses.
	Debug bool
}

// Server is the HTTP surface over a lookup.Service.
type Server struct {
	svc    *lookup.Service
	opts   Options
	logger observe.Logger
	router *gin.Engine

	sessions sync.WaitGroup
	mu       sync.Mutex
	live     map[string]context.CancelFunc
}

// NewServer builds the router.
func NewServer(svc *lookup.Service, opts Options) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "wikigraph"
	}
	if opts.Logger == nil {
		opts.Logger = observe.NopLogger()
	}
	s := &Server{
		svc:    svc,
		opts:   opts,
		logger: opts.Logger.With(observe.F("component", "api")),
		live:   make(map[string]context.CancelFunc),
	}

	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(opts.ServiceName), requestLogger(s.logger))

	r.GET("/healthz", gin.WrapF(health.LivenessHandler()))
	if opts.Health != nil {
		r.GET("/readyz", gin.WrapF(health.ReadinessHandler(opts.Health)))
		r.GET("/health", gin.WrapF(health.DetailedHandler(opts.Health)))
	}
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	gated := r.Group("/", authenticate(opts.Auth, s.logger))
	gated.GET("/api", s.handleQuery)
	gated.GET("/lookup.php", s.handleQuery)
	gated.GET("/ws", s.handleSocket)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is done, then shuts down gracefully:
// in-flight requests get up to grace to finish and open websocket
// sessions are closed.
func (s *Server) Serve(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "listening", observe.F("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.closeSessions()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.Wait()
	if err == nil {
		err = <-errc
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	s.logger.Info(context.Background(), "stopped")
	return err
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.live {
		cancel()
	}
	s.live = nil
}

// requestLogger logs one line per request.
func requestLogger(logger observe.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(c.Request.Context(), "request",
			observe.F("method", c.Request.Method),
			observe.F("path", c.Request.URL.Path),
			observe.F("status", c.Writer.Status()),
			observe.F("duration_ms", time.Since(start).Milliseconds()),
			observe.F("client_ip", c.ClientIP()),
		)
	}
}

// authenticate gates requests behind a. A nil a lets everyone through as
// the anonymous identity.
func authenticate(a auth.Authenticator, logger observe.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id *auth.Identity
		if a == nil {
			id = auth.Anonymous()
		} else {
			var err error
			id, err = a.Authenticate(c.Request.Context(), c.Request.Header)
			if err != nil {
				if auth.IsAuthFailure(err) {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
					return
				}
				logger.Error(c.Request.Context(), "authentication fault", observe.F("error", err.Error()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication unavailable"})
				return
			}
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}
