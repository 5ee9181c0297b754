package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"splitflap"
	"splitflap/internal/display"
	"splitflap/internal/eventbus"
	"splitflap/internal/generators"
	"splitflap/internal/handlers"
	"splitflap/internal/logger"
	"splitflap/internal/repository"
	"splitflap/internal/server"
	"splitflap/internal/service"
	"splitflap/internal/triggers"
	"splitflap/internal/weather"

	"github.com/spf13/viper"
)

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// trigger config: invalid rules are fatal at startup, reload errors are not
	triggerPath := viper.GetString("triggers.path")
	if triggerPath == "" {
		triggerPath = "configs/triggers.yml"
	}
	triggerCfg, err := triggers.Load(triggerPath)
	if err != nil {
		log.Fatalw("failed to load trigger config", "path", triggerPath, "err", err)
	}
	matcher, err := triggers.NewMatcher(triggerCfg.Triggers)
	if err != nil {
		log.Fatalw("failed to compile triggers", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(db)
	fallback := generators.NewFallback(viper.GetString("content.fallback_text"))
	deps := service.Deps{
		Display:       display.New(viper.GetString("display.url"), viper.GetString("display.api_key")),
		Weather:       weatherSource(),
		Events:        nil, // set below when redis is configured
		Matcher:       matcher,
		Registrations: generators.DefaultRegistrations(fallback),
		Fallback:      fallback,
		Minor:         generators.NewClock(),
		SigningKey:    viper.GetString("auth.signing_key"),
		TokenTTL:      viper.GetDuration("auth.token_ttl"),
		Log:           log,
	}

	bus := eventSource(log)
	if bus != nil {
		deps.Events = bus
		defer func() { _ = bus.Close() }()
	}

	services := service.NewService(repos, deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.CircuitBreaker.SeedDefaults(ctx); err != nil {
		log.Fatalw("failed to seed circuit breakers", "err", err)
	}

	// hot-reload trigger rules on file change
	watcher, err := triggers.Watch(triggerPath,
		func(cfg *triggers.Config) {
			if uerr := matcher.UpdateTriggers(cfg.Triggers); uerr != nil {
				log.Errorw("trigger config reload rejected", "err", uerr)
				return
			}
			log.Infow("trigger config reloaded", "triggers", len(cfg.Triggers))
		},
		func(werr error) {
			log.Errorw("trigger config reload failed", "err", werr)
		},
	)
	if err != nil {
		log.Warnw("trigger hot-reload unavailable", "err", err)
	} else {
		defer func() { _ = watcher.Close() }()
	}

	// start background engines
	services.Scheduler.Start()
	defer services.Scheduler.Stop()

	if err := services.EventStream.Start(); err != nil {
		log.Warnw("event subscriptions unavailable", "err", err)
	}
	defer services.EventStream.Stop()

	// produce the first major frame so minor updates can run
	go func() {
		res := services.Orchestrator.GenerateAndSend(ctx, splitflap.GenerationContext{
			UpdateType: splitflap.UpdateMajor,
			Timestamp:  time.Now(),
		})
		log.Infow("startup major update", "success", res.Success, "blocked", res.Blocked, "reason", res.BlockReason)
	}()

	// start HTTP server
	apiHandler := handlers.NewHandler(services, log)
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "splitflap.db")
		dbPath = "splitflap.db"
	}
	return repository.InitDB(dbPath)
}

// weatherSource is optional: without a configured URL the status bar shows time only.
func weatherSource() service.WeatherSource {
	url := viper.GetString("weather.url")
	if url == "" {
		return nil
	}
	return weather.New(url)
}

// eventSource is optional: without redis the event handler stays inert.
func eventSource(log *logger.Logger) *eventbus.RedisBus {
	addr := viper.GetString("redis.addr")
	if addr == "" {
		return nil
	}
	bus := eventbus.New(addr, viper.GetString("redis.password"), viper.GetInt("redis.db"), log)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()
	if err := bus.Ping(pingCtx); err != nil {
		log.Warnw("redis unreachable; external events disabled", "addr", addr, "err", err)
		_ = bus.Close()
		return nil
	}
	return bus
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
