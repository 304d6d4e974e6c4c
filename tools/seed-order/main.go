// Command seed-order inserts a pending order and prints its id and public
// token, for exercising the status and tracking endpoints locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"order-status-service/database"
	"order-status-service/models"
	aws_pkg "order-status-service/pkg/aws"
	"order-status-service/repository"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	var store, table, email, phone string
	flag.StringVar(&store, "store", envOr("ORDER_STORE", "postgres"), "order store: postgres or dynamodb")
	flag.StringVar(&table, "table", envOr("DYNAMODB_ORDERS_TABLE", "orders"), "DynamoDB table name")
	flag.StringVar(&email, "email", "", "customer email")
	flag.StringVar(&phone, "phone", "", "customer phone")
	flag.Parse()

	ctx := context.Background()

	var repo repository.OrderRepository
	switch store {
	case "dynamodb":
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}
		repo = repository.NewDynamoOrderRepository(aws_pkg.NewDynamoDBClient(awsCfg), table)
	case "postgres":
		db, err := database.ConnectPostgres(database.PostgresConfig{
			Host:     envOr("POSTGRES_HOST", "localhost"),
			Port:     envOr("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
			TimeZone: envOr("POSTGRES_TIMEZONE", "UTC"),
		}, zap.NewNop(), &models.Order{})
		if err != nil {
			log.Fatalf("postgres connect: %v", err)
		}
		defer database.Close(db) //nolint:errcheck
		repo = repository.NewGormOrderRepository(db)
	default:
		log.Fatalf("unknown store %q", store)
	}

	order := models.NewOrder(email, phone)
	if err := repo.Create(ctx, order); err != nil {
		log.Fatalf("create order: %v", err)
	}
	fmt.Printf("order_id=%s public_token=%s\n", order.ID, order.PublicToken)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
