package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sjbitcode/url-shortener/internal/analytics"
	"github.com/sjbitcode/url-shortener/internal/cache"
	"github.com/sjbitcode/url-shortener/internal/config"
	"github.com/sjbitcode/url-shortener/internal/db"
	"github.com/sjbitcode/url-shortener/internal/geo"
	"github.com/sjbitcode/url-shortener/internal/handlers"
	"github.com/sjbitcode/url-shortener/internal/links"
	"github.com/sjbitcode/url-shortener/internal/logger"
	"github.com/sjbitcode/url-shortener/internal/slug"
	"github.com/sjbitcode/url-shortener/internal/tags"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		zlog.Fatal("database", zap.Error(err))
	}
	defer database.Close()

	geoReader, err := geo.Open(cfg.GeoIPPath)
	if err != nil {
		zlog.Warn("geo lookups disabled", zap.String("path", cfg.GeoIPPath), zap.Error(err))
		geoReader, _ = geo.Open("")
	}
	defer geoReader.Close()

	linkCache, err := cache.New(cfg.CacheSize)
	if err != nil {
		zlog.Fatal("cache", zap.Error(err))
	}

	registry := links.NewRegistry(database, slug.NewGenerator(cfg.KeyLength), linkCache, zlog.Named("links"))

	var hashKey []byte
	if cfg.HashIPs {
		hashKey = []byte(cfg.HashKey)
	}
	aggregator := analytics.NewAggregator(database, registry, analytics.AggregatorOptions{
		Lookup:     geoReader.Lookup,
		GeoTimeout: cfg.GeoTimeout,
		HashKey:    hashKey,
		Log:        zlog.Named("analytics"),
	})
	collector := analytics.NewCollector(aggregator, analytics.CollectorOptions{
		BufferSize: cfg.BufferSize,
		Workers:    cfg.Workers,
		CountBots:  cfg.CountBots,
		Log:        zlog.Named("collector"),
	})

	linkHandler := &handlers.LinkHandler{
		Links: registry,
		Tags:  tags.NewLinker(database, cfg.TagLimit),
		Cfg:   cfg,
		Log:   zlog,
	}
	redirectHandler := &handlers.RedirectHandler{
		Links:     registry,
		Collector: collector,
		MaxAge:    cfg.CacheMaxAge,
		Log:       zlog,
	}
	r := handlers.NewRouter(cfg.Password, cfg.CORSOrigins, linkHandler, redirectHandler, &handlers.HealthHandler{DB: database})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zlog.Info("listening", zap.String("port", cfg.Port), zap.String("site", cfg.SiteDomain))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server", zap.Error(err))
		}
	}()

	<-stop
	zlog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}

	collector.Shutdown()
	zlog.Info("goodbye")
}
