/**
 * @description
 * This is the main entry point for the payment-review-service. It is
 * responsible for initializing all components of the service: configuration,
 * the database pool, the RabbitMQ producer, the university integration client,
 * the repository, the settlement service, the notification dispatcher, the
 * settlement-gap sweeper and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/notify, internal/store: Internal packages.
 * - pkg/rabbitmq, pkg/universityclient: External transports.
 */

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/studyglobal/payment-review-service/internal/api"
	"github.com/studyglobal/payment-review-service/internal/app"
	"github.com/studyglobal/payment-review-service/internal/config"
	"github.com/studyglobal/payment-review-service/internal/notify"
	"github.com/studyglobal/payment-review-service/internal/store"
	"github.com/studyglobal/payment-review-service/pkg/rabbitmq"
	"github.com/studyglobal/payment-review-service/pkg/universityclient"
)

func main() {
	// Load a local .env when present; containerized deployments rely on real env vars.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting payment-review-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer for notification fan-out. A broker
	// outage at boot degrades notifications, not reviews.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// University integration client. Missing config disables the call; the
	// dispatcher reports it as a warning on affected reviews.
	var universityClient *universityclient.Client
	if strings.TrimSpace(cfg.UniversityAPIBaseURL) == "" || strings.TrimSpace(cfg.UniversityAPIKey) == "" {
		log.Printf("level=warn component=bootstrap msg=\"university client not configured; fee-paid notices disabled\" base_url_set=%t api_key_set=%t",
			strings.TrimSpace(cfg.UniversityAPIBaseURL) != "",
			strings.TrimSpace(cfg.UniversityAPIKey) != "",
		)
	} else {
		universityClient = universityclient.NewClient(cfg.UniversityAPIBaseURL, cfg.UniversityAPIKey)
	}

	// Redis-backed review rate limiting; optional.
	var limiter *app.RedisReviewRateLimiter
	if cfg.ReviewRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; review rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; review rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient := redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; review rate limiting disabled\" err=%v", pingErr)
				} else {
					limiter = app.NewRedisReviewRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
					log.Println("level=info component=bootstrap msg=\"redis connected; review rate limiting enabled\"")
				}
				cancelPing()
			}
		}
	}

	var universityNotifier notify.UniversityNotifier
	if universityClient != nil {
		universityNotifier = universityClient
	}
	dispatcher := notify.NewDispatcher(producer, universityNotifier, time.Duration(cfg.NotificationTimeoutSec)*time.Second)

	repo := store.NewPostgresRepository(dbpool)
	service := app.NewService(repo, dispatcher, app.DefaultFees{
		SelectionProcess:   cfg.SelectionProcessFeeCents,
		I20Control:         cfg.I20ControlFeeCents,
		Scholarship:        cfg.ScholarshipFeeCents,
		DependentSurcharge: cfg.DependentSurchargeCents,
	}, cfg.ReferralRewardCents)

	// Periodic settlement-gap audit.
	slogger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	sweeper := app.NewGapSweeper(service, slogger, cfg.GapSweepSchedule, cfg.GapSweepLimit)
	sweeper.Start()
	defer sweeper.Stop()

	handlers := api.NewPaymentHandlers(service, limiter, cfg.ReviewRateLimitPerMinute)
	router := api.PaymentRoutes(handlers, cfg.AdminJWKSURL, cfg.InternalAPIKey)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	// Start the HTTP server and wait for a shutdown signal.
	go func() {
		log.Printf("level=info component=bootstrap msg=\"http server listening\" addr=%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=bootstrap msg=\"http server failed\" err=%v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("level=info component=bootstrap msg=\"shutdown signal received\"")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=error component=bootstrap msg=\"http server shutdown failed\" err=%v", err)
	}
	log.Println("level=info component=bootstrap msg=\"payment-review-service stopped\"")
}
