package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/terminal-bench/civicfix/internal/cache"
	"github.com/terminal-bench/civicfix/internal/config"
	"github.com/terminal-bench/civicfix/internal/handlers"
	"github.com/terminal-bench/civicfix/internal/pipeline"
	"github.com/terminal-bench/civicfix/internal/repository"
	"github.com/terminal-bench/civicfix/internal/routing"
	"github.com/terminal-bench/civicfix/internal/services/geocode"
	"github.com/terminal-bench/civicfix/internal/services/notify"
	"github.com/terminal-bench/civicfix/internal/services/photo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	repo, err := repository.NewRuleRepository(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	if cfg.SeedSampleRules {
		seeded, err := repo.SeedSampleRules(ctx)
		if err != nil {
			log.Fatalf("Failed to seed sample rules: %v", err)
		}
		if seeded {
			log.Println("Inserted sample routing rules into empty table")
		}
	}

	rules, err := repo.LoadAll(ctx)
	if err != nil {
		log.Fatalf("Failed to load routing rules: %v", err)
	}
	table := routing.NewTable(rules)
	log.Printf("Loaded %d routing rules", table.Len())

	geocoder := buildGeocoder(ctx, cfg)
	normalizer := photo.NewNormalizer()
	notifier := notify.NewBrevoClient(cfg.BrevoAPIURL, cfg.BrevoAPIKey,
		cfg.SenderName, cfg.SenderEmail, cfg.ExternalTimeout)

	pipe := pipeline.New(geocoder, table, normalizer, notifier, pipeline.Options{
		DefaultContact:  cfg.DefaultContactEmail,
		ExternalTimeout: cfg.ExternalTimeout,
	})

	router := setupRouter(cfg, pipe)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown Server ...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// buildGeocoder wraps the Nominatim client in a cache: redis when
// configured, in-process otherwise.
func buildGeocoder(ctx context.Context, cfg *config.Config) geocode.Geocoder {
	client := geocode.NewNominatimClient(cfg.NominatimURL, cfg.GeocoderUA, cfg.ExternalTimeout)

	var store cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, "civicfix:")
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		store = redisCache
	} else {
		store = cache.NewMemoryCache(cfg.GeocodeCacheTTL, 2*cfg.GeocodeCacheTTL)
	}

	return geocode.NewCachedGeocoder(client, store, cfg.GeocodeCacheTTL)
}

func setupRouter(cfg *config.Config, pipe *pipeline.Pipeline) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	reportHandler := handlers.NewReportHandler(pipe, cfg.MaxPhotoBytes)
	router.POST("/report", reportHandler.Create)

	// Front-end assets, when deployed alongside the binary.
	if _, err := os.Stat("static"); err == nil {
		router.Static("/static", "./static")
		router.GET("/", func(c *gin.Context) {
			c.File("static/index.html")
		})
	}

	return router
}
