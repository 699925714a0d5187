package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/movie-library/internal/config"
	"github.com/iliyamo/movie-library/internal/database"
	"github.com/iliyamo/movie-library/internal/handler"
	"github.com/iliyamo/movie-library/internal/middleware"
	"github.com/iliyamo/movie-library/internal/queue"
	"github.com/iliyamo/movie-library/internal/repository"
	"github.com/iliyamo/movie-library/internal/router"
	"github.com/iliyamo/movie-library/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.Database())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: response cache off, rate limiting in-process")
	} else {
		defer rdb.Close()
	}

	var activity handler.ActivityPublisher
	if cfg.EventsEnabled {
		pub := service.NewActivityPublisher(cfg.RabbitURL)
		defer pub.Close()
		activity = pub
	}
	if cfg.ConsumerEnabled {
		go queue.StartActivityConsumer(cfg.RabbitURL, cfg.ActivityLogPath)
	}

	users := repository.NewUserRepo(db)
	health := &handler.HealthHandler{DB: db}
	if rdb != nil {
		health.Redis = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLog())
	e.Use(middleware.Identify(cfg.JWTSecret, users))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cacheCfg := config.LoadCacheConfig()
	router.RegisterRoutes(e, router.Handlers{
		Movies:          handler.NewMovieHandler(repository.NewMovieRepo(db), repository.NewReferenceRepo(db), activity),
		Directors:       handler.NewDirectorHandler(repository.NewDirectorRepo(db)),
		Genres:          handler.NewGenreHandler(repository.NewGenreRepo(db)),
		Countries:       handler.NewCountryHandler(repository.NewCountryRepo(db)),
		AgeRestrictions: handler.NewAgeRestrictionHandler(repository.NewAgeRestrictionRepo(db)),
		Auth:            handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db)),
		Health:          health,
	}, router.Caching{
		Cache:      middleware.NewRedisCache(cacheCfg, rdb),
		Invalidate: middleware.InvalidateOnWrite(cacheCfg, rdb),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, db.Dialect)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func logLevel(s string) glog.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return glog.DEBUG
	case "warn", "warning":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	}
	return glog.INFO
}
