package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quotefeed/internal/aggregate"
	"quotefeed/internal/cache"
	"quotefeed/internal/config"
	"quotefeed/internal/httpx"
	"quotefeed/internal/metrics"
	"quotefeed/internal/provider/alphavantage"
	"quotefeed/internal/provider/coingecko"
	"quotefeed/internal/provider/finnhub"
	"quotefeed/internal/provider/polygon"
	"quotefeed/internal/stream"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Finnhub.APIKey == "" {
		log.Println("warning: FINNHUB_API_KEY not set; primary quote source disabled")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	met := metrics.New()

	store, err := newStore(cfg.Cache, met)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}

	fh := finnhub.New(finnhub.Config{
		APIKey:  cfg.Finnhub.APIKey,
		BaseURL: cfg.Finnhub.BaseURL,
	}, httpClient)

	pgOpts := []polygon.Option{polygon.WithHTTPClient(httpClient.HTTP)}
	if cfg.Polygon.BaseURL != "" {
		pgOpts = append(pgOpts, polygon.WithBaseURL(cfg.Polygon.BaseURL))
	}
	pg, err := polygon.NewClient(cfg.Polygon.APIKey, pgOpts...)
	if err != nil {
		log.Fatalf("polygon: %v", err)
	}

	cg := coingecko.New(coingecko.Config{
		BaseURL:           cfg.CoinGecko.BaseURL,
		APIKey:            cfg.CoinGecko.APIKey,
		Disabled:          !cfg.CoinGecko.Enabled,
		RequestsPerMinute: cfg.CoinGecko.MaxRequestsPerMinute,
		Burst:             cfg.CoinGecko.Burst,
	}, httpClient)

	av := alphavantage.New(alphavantage.Config{
		APIKey:            cfg.AlphaVantage.APIKey,
		BaseURL:           cfg.AlphaVantage.BaseURL,
		RequestsPerMinute: cfg.AlphaVantage.MaxRequestsPerMinute,
		Burst:             cfg.AlphaVantage.Burst,
	}, httpClient)

	aggOpts := []aggregate.Option{}
	if cfg.Cache.QuoteTTLMS > 0 {
		aggOpts = append(aggOpts, aggregate.WithQuoteTTL(time.Duration(cfg.Cache.QuoteTTLMS)*time.Millisecond))
	}
	if cfg.Cache.CandleTTLSec > 0 {
		aggOpts = append(aggOpts, aggregate.WithCandleTTL(time.Duration(cfg.Cache.CandleTTLSec)*time.Second))
	}
	agg := aggregate.New(aggregate.Deps{
		Finnhub:      fh,
		Polygon:      pg,
		CoinGecko:    cg,
		AlphaVantage: av,
		Cache:        store,
		Metrics:      met,
	}, aggOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mgr *stream.Manager
	if cfg.Stream.Enabled {
		mgr = stream.NewManager(stream.Config{
			BinanceURL:    cfg.Stream.BinanceURL,
			FinnhubURL:    cfg.Stream.FinnhubURL,
			FinnhubAPIKey: cfg.Finnhub.APIKey,
			PingPeriod:    time.Duration(cfg.Stream.PingPeriodSec) * time.Second,
		}, stream.WithMetrics(met))
		go mgr.Run(ctx)
	}

	a := &api{agg: agg, mgr: mgr}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/quote", a.handleQuote)
	mux.HandleFunc("/api/candles", a.handleCandles)
	mux.HandleFunc("/api/ticker", a.handleTicker)

	// No WriteTimeout: /api/ticker holds long-lived event streams.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withRequestID(withJSONHeaders(withGzip(recoverPanic(limitBody(mux))))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// newStore builds the two-tier cache with the configured persistent backend.
func newStore(cfg config.Cache, met *metrics.Metrics) (*cache.Store, error) {
	opts := []cache.Option{cache.WithMetrics(met)}
	switch cfg.Backend {
	case "disk":
		disk, err := cache.NewDisk(cfg.Dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cache.WithBackend(disk))
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		maxAge := time.Duration(cfg.CandleTTLSec) * time.Second
		opts = append(opts, cache.WithBackend(cache.NewRedis(rdb, "quotefeed:", maxAge)))
	case "none":
	}
	return cache.New(opts...), nil
}
