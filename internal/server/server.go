// Package server exposes the coaching engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"northstar/internal/catalog"
	"northstar/internal/coach"
	"northstar/internal/comb"
	"northstar/internal/config"
	"northstar/internal/logging"
	"northstar/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Options wires the server's collaborators. Zero values pick defaults.
type Options struct {
	Config       config.ServerConfig
	Scorer       comb.Config
	DefaultLimit int
	Catalog      *catalog.Catalog

	// CatalogPath is watched for changes when Watch is set.
	CatalogPath   string
	Watch         bool
	WatchDebounce time.Duration

	// Store records runs for requests that carry a user id. Optional.
	Store *store.Store

	// Registry receives the server metrics; nil creates a private registry.
	Registry *prometheus.Registry

	Debug bool
}

// engineState is swapped as a unit when the catalog changes.
type engineState struct {
	gen     uint64
	scorer  *comb.Scorer
	builder *coach.Builder
	catalog *catalog.Catalog
}

// newEngineState binds the scorer and builder to cat, including the
// catalog's pillar names for metrics that carry none.
func newEngineState(gen uint64, cat *catalog.Catalog, cfg comb.Config) *engineState {
	cfg.PillarNames = cat.PillarName
	return &engineState{
		gen:     gen,
		scorer:  comb.NewScorer(cfg),
		builder: coach.NewBuilder(cat, cfg),
		catalog: cat,
	}
}

// Server is the HTTP adapter around the scorer and profile builder.
type Server struct {
	opts     Options
	engine   *gin.Engine
	state    atomic.Pointer[engineState]
	cache    *resultCache
	metrics  *Metrics
	registry *prometheus.Registry
	store    *store.Store
	limit    int
	started  time.Time
	log      *logging.Logger
}

// New builds a server. It does not start listening.
func New(opts Options) (*Server, error) {
	if opts.Scorer.MaxActions == 0 {
		opts.Scorer = comb.DefaultConfig()
	}
	if err := opts.Scorer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scorer config: %w", err)
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	cache, err := newResultCache(opts.Config.CacheSize, opts.Config.GetCacheTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		opts:     opts,
		engine:   gin.New(),
		cache:    cache,
		metrics:  MustNewMetrics(opts.Registry),
		registry: opts.Registry,
		store:    opts.Store,
		limit:    opts.DefaultLimit,
		started:  time.Now(),
		log:      logging.Get(logging.CategoryServer),
	}
	s.state.Store(newEngineState(1, opts.Catalog, opts.Scorer))

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.observe())
	if opts.Config.CORS {
		corsConfig := cors.DefaultConfig()
		if len(opts.Config.AllowOrigins) == 0 || opts.Config.AllowOrigins[0] == "*" {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = opts.Config.AllowOrigins
		}
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
		s.engine.Use(cors.New(corsConfig))
	}
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	v1 := s.engine.Group("/v1")
	v1.POST("/recommendations", s.handleRecommendations)
	v1.POST("/profile", s.handleProfile)
	v1.POST("/context", s.handleContext)
	v1.POST("/plan/:pillarId", s.handlePlan)
	v1.GET("/catalog", s.handleCatalog)

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetCatalog swaps in a new catalog. In-flight requests finish against the
// catalog they started with; cached results are dropped.
func (s *Server) SetCatalog(cat *catalog.Catalog) {
	if cat == nil {
		return
	}
	for {
		old := s.state.Load()
		next := newEngineState(old.gen+1, cat, s.opts.Scorer)
		if s.state.CompareAndSwap(old, next) {
			s.cache.purge()
			s.metrics.recordReload()
			s.log.Info("catalog swapped: generation=%d pillars=%d", next.gen, len(cat.Pillars))
			return
		}
	}
}

// Run listens on the configured address until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down gracefully. When
// catalog watching is enabled the watcher runs alongside the listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.Config.GetReadTimeout(),
		WriteTimeout: s.opts.Config.GetWriteTimeout(),
	}

	var w *catalog.Watcher
	if s.opts.Watch && s.opts.CatalogPath != "" {
		var err error
		if w, err = catalog.NewWatcher(s.opts.CatalogPath, s.SetCatalog); err != nil {
			return fmt.Errorf("failed to create catalog watcher: %w", err)
		}
		if s.opts.WatchDebounce > 0 {
			w.SetDebounce(s.opts.WatchDebounce)
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			return fmt.Errorf("failed to start catalog watcher: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if w != nil {
		g.Go(func() error {
			<-gctx.Done()
			w.Stop()
			return nil
		})
	}

	return g.Wait()
}

// observe records per-route metrics and a debug access log line.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.observeRequest(route, strconv.Itoa(status), elapsed)
		s.log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, elapsed)
	}
}
