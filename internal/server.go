package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/myazlifresh/foundersite/internal/auth"
	"github.com/myazlifresh/foundersite/internal/blog"
	"github.com/myazlifresh/foundersite/internal/config"
	"github.com/myazlifresh/foundersite/internal/contact"
	"github.com/myazlifresh/foundersite/internal/db"
	"github.com/myazlifresh/foundersite/internal/geoip"
	"github.com/myazlifresh/foundersite/internal/media"
	"github.com/myazlifresh/foundersite/internal/middleware"
	"github.com/myazlifresh/foundersite/internal/profile"
	"github.com/myazlifresh/foundersite/internal/telemetry/metrics"
	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
)

const defaultIpBaseEndpoint = "https://api.ipbase.com"

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config            *config.Config
	dbPool            *pgxpool.Pool
	redisClient       *redis.Client
	geoIp             *geoip.Api
	verifier          *auth.Verifier
	sessionCodec      *auth.Codec
	profileImageStore *profile.ImageStore

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	AdminEmail              string
	AdminPasswordHash       string
	SessionSigningSecret    string
	RedisPassword           string
	IpBaseAPIKey            string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("foundersite", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "foundersite-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	profileImageStore, err := profile.NewImageStore(params.Config.ProfileImagesPath)
	if err != nil {
		return nil, fmt.Errorf("new profile image store: %w", err)
	}

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		redisClient: rdb,
		geoIp: geoip.NewApi(
			defaultIpBaseEndpoint,
			params.IpBaseAPIKey,
			tracedHttpClient,
			rdb,
		),
		verifier: auth.NewVerifier(auth.Admin{
			Email:        params.AdminEmail,
			PasswordHash: params.AdminPasswordHash,
		}),
		sessionCodec:      auth.NewCodec(params.SessionSigningSecret, auth.DefaultTTL),
		profileImageStore: profileImageStore,

		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	secureCookies := s.config.IsProduction()

	authHandler := auth.NewHandler(s.verifier, s.sessionCodec, secureCookies, s.metricsManager)
	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authHandler.SetupRoutes(authRouter)

	// login guessing is the only brute-forceable surface, rate limit it
	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authRouter.Use(middleware.RateLimit(
		reqRateLimiter,
		"login",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	))

	blogRepo := blog.NewRepo(s.dbPool)
	blogFeed := blog.NewFeed(blogRepo, s.config.BaseURL, "Myazli Fresh")
	blogHandler := blog.NewHandler(blogRepo, blogFeed, s.metricsManager)
	blogHandler.SetupRoutes(r.PathPrefix("/api/blog").Subrouter())
	blogHandler.SetupAdminRoutes(r.PathPrefix("/api/admin/blog").Subrouter())

	mediaHandler := media.NewHandler(media.NewRepo(s.dbPool), s.metricsManager)
	mediaHandler.SetupRoutes(r.PathPrefix("/api/media").Subrouter())
	mediaHandler.SetupAdminRoutes(r.PathPrefix("/api/admin/media").Subrouter())

	contactHandler := contact.NewHandler(contact.NewRepo(s.dbPool), s.geoIp, s.metricsManager)
	contactHandler.SetupRoutes(r.PathPrefix("/api/contact").Subrouter())
	contactHandler.SetupAdminRoutes(r.PathPrefix("/api/admin/messages").Subrouter())

	profileHandler := profile.NewHandler(s.profileImageStore)
	profileHandler.SetupRoutes(r.PathPrefix("/api/profile").Subrouter())
	profileHandler.SetupAdminRoutes(r.PathPrefix("/api/admin/profile").Subrouter())

	// the admin panel is a single page app built separately and served
	// as static files, every /admin path gets its index.html
	if s.config.AdminDistPath != "" {
		r.PathPrefix(middleware.AdminPagePrefix).HandlerFunc(s.serveAdminPanel)
	}

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.sessionCodec, secureCookies)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) serveAdminPanel(w http.ResponseWriter, r *http.Request) {
	assetPath := strings.TrimPrefix(r.URL.Path, middleware.AdminPagePrefix)
	assetPath = strings.TrimPrefix(assetPath, "/")

	if assetPath != "" {
		fullPath := filepath.Join(s.config.AdminDistPath, filepath.Clean(assetPath))
		if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
			http.ServeFile(w, r, fullPath)
			return
		}
	}

	// SPA fallback, client side routing takes it from here
	http.ServeFile(w, r, filepath.Join(s.config.AdminDistPath, "index.html"))
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() (shutdownErr error) {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
			shutdownErr = multierr.Append(shutdownErr, err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
		shutdownErr = multierr.Append(shutdownErr, err)
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
		shutdownErr = multierr.Append(shutdownErr, err)
	}
	log.Warnln("metrics server shut down")

	return shutdownErr
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
