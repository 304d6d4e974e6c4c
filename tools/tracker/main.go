// Command tracker follows one order's status from the terminal, combining
// the public read endpoint with the realtime channel when Redis is given.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-status-service/database"
	"order-status-service/realtime"
	"order-status-service/tracking"

	"go.uber.org/zap"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8093", "order status service base URL")
	redisURL := flag.String("redis", os.Getenv("REDIS_URL"), "redis URL for push updates (optional)")
	prefix := flag.String("prefix", realtime.DefaultTopicPrefix, "realtime topic prefix")
	interval := flag.Duration("interval", tracking.DefaultPollInterval, "poll interval")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: tracker [flags] <public-token>")
	}
	token := flag.Arg(0)

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sub tracking.Subscriber
	if *redisURL != "" {
		rdb, err := database.NewRedisClient(ctx, *redisURL)
		if err != nil {
			logger.Warn("Redis unavailable, polling only", zap.Error(err))
		} else {
			defer rdb.Close()
			sub = realtime.NewPublisher(realtime.NewRedisBroker(rdb), *prefix, 0, logger)
		}
	}

	client := tracking.NewClient(token, tracking.NewHTTPSource(*apiURL), sub,
		tracking.WithPollInterval(*interval),
		tracking.WithLogger(logger),
	)

	logger.Info("Tracking order", zap.String("token", token))
	_ = client.Run(ctx, func(s tracking.State) {
		logger.Info("Status changed",
			zap.String("status", string(s.Status)),
			zap.Time("updated_at", s.UpdatedAt),
			zap.String("seen_at", time.Now().Format(time.RFC3339)),
		)
	})
}
