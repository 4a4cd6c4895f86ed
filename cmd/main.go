/**
 * @description
 * This is the main entry point for the donation-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, payment provider clients, message brokers, repositories, the core
 * application service, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/paymongo, pkg/maya: Payment provider clients.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/alumnilink/donation-service/internal/api"
	"github.com/alumnilink/donation-service/internal/app"
	"github.com/alumnilink/donation-service/internal/config"
	"github.com/alumnilink/donation-service/internal/store"
	"github.com/alumnilink/donation-service/pkg/maya"
	"github.com/alumnilink/donation-service/pkg/paymongo"
	"github.com/alumnilink/donation-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.PayMongoWebhookSecret) == "" && strings.TrimSpace(cfg.MayaWebhookSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"at least one provider webhook secret must be configured\" env=PAYMONGO_WEBHOOK_SECRET,MAYA_WEBHOOK_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting donation-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	// Webhook traffic is bursty around provider retry windows; keep a warm
	// floor of connections and recycle long-lived ones.
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 10
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish donation events. The
	// notification pipeline is best-effort, so a broker outage at boot degrades
	// to the no-op fallback instead of failing the service.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		producer = eventProducer
	}
	defer producer.Close()

	// Initialize the payment provider clients. A provider with no key stays
	// unconfigured; checkout requests for it return a provider-unavailable error
	// while its webhook endpoint continues to verify and acknowledge callbacks.
	var payMongoClient *paymongo.Client
	if strings.TrimSpace(cfg.PayMongoSecretKey) != "" {
		payMongoClient = paymongo.NewClient(cfg.PayMongoAPIBaseURL, cfg.PayMongoSecretKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	} else {
		log.Println("level=warn component=bootstrap msg=\"paymongo secret key missing; paymongo checkout disabled\" env=PAYMONGO_SECRET_KEY")
	}

	var mayaClient *maya.Client
	if strings.TrimSpace(cfg.MayaPublicKey) != "" {
		mayaClient = maya.NewClient(cfg.MayaAPIBaseURL, cfg.MayaPublicKey, cfg.CheckoutSuccessURL, cfg.CheckoutFailureURL, cfg.CheckoutCancelURL)
	} else {
		log.Println("level=warn component=bootstrap msg=\"maya public key missing; maya checkout disabled\" env=MAYA_PUBLIC_KEY")
	}

	// Redis-backed webhook replay suppression is optional; the ledger's unique
	// constraint keeps reconciliation idempotent without it.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; webhook replay suppression disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; webhook replay suppression disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; webhook replay suppression disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	donationService := app.NewService(
		repository,
		repository,
		payMongoClient,
		mayaClient,
		producer,
		cfg.PayMongoWebhookSecret,
		cfg.MayaWebhookSecret,
	)
	if redisClient != nil {
		donationService.SetReplaySuppressor(
			app.NewRedisReplaySuppressor(redisClient, cfg.RedisDedupePrefix, time.Duration(cfg.WebhookDedupeTTL)*time.Second),
		)
	}

	// Initialize the API handlers.
	donationHandlers := api.NewDonationHandlers(donationService)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/donations", api.DonationRoutes(donationHandlers, cfg.ClerkJWKSURL))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
