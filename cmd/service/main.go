package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/myazlifresh/foundersite/internal"
	"github.com/myazlifresh/foundersite/internal/config"
	"github.com/myazlifresh/foundersite/internal/logging"
	"github.com/myazlifresh/foundersite/pkg"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "foundersite-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	if exists, err := pkg.PathExists(cfg.ProfileImagesPath, true); err != nil {
		log.Fatalf("check profile images path: %s", err)
	} else if !exists {
		log.Warnf("profile images path [%s] does not exist, will be created", cfg.ProfileImagesPath)
	}

	// admin credentials and the session signing secret have no
	// defaults on purpose; without them the service must not come up
	// half-open
	adminEmail := os.Getenv("FOUNDERSITE_ADMIN_EMAIL")
	adminPasswordHash := os.Getenv("FOUNDERSITE_ADMIN_PASSWORD_HASH")
	if adminEmail == "" || adminPasswordHash == "" {
		log.Fatalf("admin credentials not set, use FOUNDERSITE_ADMIN_EMAIL and FOUNDERSITE_ADMIN_PASSWORD_HASH env vars to set them")
	}

	sessionSigningSecret := os.Getenv("FOUNDERSITE_SESSION_SECRET")
	if sessionSigningSecret == "" {
		log.Fatalf("session signing secret not set, use FOUNDERSITE_SESSION_SECRET env var to set it")
	}

	ipBaseAPIKey := os.Getenv("IP_BASE_API_KEY")
	if ipBaseAPIKey == "" {
		log.Errorf("ipbase API key not set, use IP_BASE_API_KEY env var to set it")
	}

	redisPassword := os.Getenv("FOUNDERSITE_REDIS_PASS")
	if redisPassword == "" {
		log.Errorf("redis password not set. use FOUNDERSITE_REDIS_PASS")
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			AdminEmail:              adminEmail,
			AdminPasswordHash:       adminPasswordHash,
			SessionSigningSecret:    sessionSigningSecret,
			RedisPassword:           redisPassword,
			IpBaseAPIKey:            ipBaseAPIKey,
			HoneycombTracingEnabled: honeycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, shutting down ...", receivedSig)
	cancel()

	if err := server.GracefulShutdown(); err != nil {
		log.Errorf("graceful shutdown: %s", err)
	}
}
