package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-status-service/controllers"
	"order-status-service/database"
	"order-status-service/events"
	"order-status-service/metrics"
	"order-status-service/middleware"
	"order-status-service/models"
	aws_pkg "order-status-service/pkg/aws"
	"order-status-service/pkg/logger"
	"order-status-service/realtime"
	"order-status-service/repository"
	"order-status-service/routes"
	"order-status-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const serviceName = "order-status-service"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// AWS clients
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(context.Background())

	var cwWriter *aws_pkg.CloudWatchLogsClient
	if cfg.CloudWatchEnabled && awsErr == nil {
		if w, err := aws_pkg.NewCloudWatchLogsClient(context.Background(), awsCfg, cfg.CloudWatchLogGroup, serviceName); err != nil {
			log.Printf("CloudWatch logging disabled: %v", err)
		} else {
			cwWriter = w
		}
	}
	var zl *zap.Logger
	if cwWriter != nil {
		zl, err = logger.Initialize(cfg.AppEnv, cwWriter)
	} else {
		zl, err = logger.Initialize(cfg.AppEnv, nil)
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if awsErr != nil {
		zl.Warn("AWS config unavailable, SNS, DynamoDB and CloudWatch disabled", zap.Error(awsErr))
	}

	metrics.Register()

	// Order store
	var (
		orderRepo repository.OrderRepository
		db        *gorm.DB
	)
	switch cfg.OrderStore {
	case StoreDynamoDB:
		if awsErr != nil {
			zl.Fatal("DynamoDB store requires AWS config", zap.Error(awsErr))
		}
		orderRepo = repository.NewDynamoOrderRepository(aws_pkg.NewDynamoDBClient(awsCfg), cfg.DynamoDBOrdersTable)
		zl.Info("Using DynamoDB order store", zap.String("table", cfg.DynamoDBOrdersTable))
	default:
		db, err = database.ConnectPostgres(cfg.Postgres(), zl, &models.Order{})
		if err != nil {
			zl.Fatal("Failed to connect to database", zap.Error(err))
		}
		orderRepo = repository.NewGormOrderRepository(db)
	}

	// Realtime
	var (
		redisClient *redis.Client
		publisher   *realtime.Publisher
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			zl.Warn("Redis unavailable, realtime updates disabled", zap.Error(err))
		} else {
			publisher = realtime.NewPublisher(realtime.NewRedisBroker(redisClient), cfg.RealtimeTopicPrefix, cfg.RealtimeReleaseDelay, zl)
		}
	} else {
		zl.Warn("REDIS_URL not set, realtime updates disabled")
	}

	// Domain events
	eventPublisher, kafkaPublisher := buildEventPublisher(cfg, awsCfg, awsErr, zl)

	// Service and DI chain
	dispatcher := services.NewNotificationDispatcher(buildNotificationConfig(cfg, zl), zl)
	var (
		rt      services.RealtimePublisher
		watcher controllers.StatusWatcher
	)
	if publisher != nil {
		rt = publisher
		watcher = publisher
	}
	statusService := services.NewStatusService(orderRepo, dispatcher, rt, eventPublisher, cfg.SideEffectTimeout, zl)
	orderController := controllers.NewOrderController(statusService, watcher, zl)

	var metricsClient *aws_pkg.MetricsClient
	if awsErr == nil {
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.Recovery(zl),
		middleware.RequestID(),
		middleware.RequestLogger(zl),
		middleware.PrometheusMiddleware(),
		middleware.MetricsMiddleware(metricsClient, serviceName),
		middleware.CORS(cfg.AllowedOrigins),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.TrackRateLimit), cfg.TrackRateBurst, 10*time.Minute)
	routes.RegisterOrderRoutes(r, orderController, limiter, middleware.Timeout(30*time.Second))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	zl.Info("Order status service started", zap.String("port", cfg.Port), zap.String("store", cfg.OrderStore))
	<-quit
	zl.Info("Shutting down order status service...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SideEffectTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := statusService.Wait(ctx); err != nil {
		zl.Warn("Side effects still running at shutdown", zap.Error(err))
	}
	if kafkaPublisher != nil {
		_ = kafkaPublisher.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := database.Close(db); err != nil {
		zl.Warn("Failed to close database", zap.Error(err))
	}
	zl.Info("Server exited cleanly")
}

// buildEventPublisher wires SNS and Kafka for order.status_changed. Either,
// both or neither may be configured.
func buildEventPublisher(cfg *Config, awsCfg sdkaws.Config, awsErr error, zl *zap.Logger) (services.EventPublisher, *events.KafkaPublisher) {
	var (
		targets events.Fanout
		kp      *events.KafkaPublisher
	)
	if cfg.OrderSNSTopicARN != "" {
		if awsErr != nil {
			zl.Warn("ORDER_SNS_TOPIC_ARN set but AWS config unavailable, SNS disabled")
		} else {
			targets = append(targets, events.NewSNSPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.OrderSNSTopicARN))
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		kp = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderStatusTopic, zl)
		targets = append(targets, kp)
	}

	switch len(targets) {
	case 0:
		zl.Warn("No domain event transport configured, skipping status events")
		return nil, nil
	case 1:
		return targets[0], kp
	default:
		return targets, kp
	}
}
