package repository

import (
	"context"
	"errors"
	"fmt"
	"order-status-service/models"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// PublicTokenIndex is the GSI on public_token.
const PublicTokenIndex = "public_token-index"

// DynamoAPI is the subset of the DynamoDB client used by the adapter.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoOrderRepository stores orders in a table keyed by `order_id`.
type DynamoOrderRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoOrderRepository(client DynamoAPI, table string) *DynamoOrderRepository {
	return &DynamoOrderRepository{client: client, table: table}
}

type ddbOrder struct {
	OrderID     string                 `dynamodbav:"order_id"`
	PublicToken string                 `dynamodbav:"public_token"`
	Status      string                 `dynamodbav:"status"`
	Email       *string                `dynamodbav:"email,omitempty"`
	Phone       *string                `dynamodbav:"phone,omitempty"`
	Metadata    map[string]interface{} `dynamodbav:"metadata,omitempty"`
	CreatedAt   string                 `dynamodbav:"created_at"`
	UpdatedAt   string                 `dynamodbav:"updated_at"`
}

func toDDB(o *models.Order) ddbOrder {
	return ddbOrder{
		OrderID:     o.ID.String(),
		PublicToken: o.PublicToken,
		Status:      string(o.Status),
		Email:       o.Email,
		Phone:       o.Phone,
		Metadata:    o.Metadata,
		CreatedAt:   o.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromDDB(d ddbOrder) *models.Order {
	o := &models.Order{
		PublicToken: d.PublicToken,
		Status:      models.OrderStatus(d.Status),
		Email:       d.Email,
		Phone:       d.Phone,
		Metadata:    d.Metadata,
	}
	o.ID, _ = uuid.Parse(d.OrderID)
	o.CreatedAt, _ = time.Parse(time.RFC3339Nano, d.CreatedAt)
	o.UpdatedAt, _ = time.Parse(time.RFC3339Nano, d.UpdatedAt)
	return o
}

func (d *DynamoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(toDDB(order))
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &d.table,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(order_id)"),
	})
	if err != nil {
		return fmt.Errorf("%w: dynamodb PutItem: %v", models.ErrStorage, err)
	}
	return nil
}

func (d *DynamoOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"order_id": id.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &d.table, Key: key})
	if err != nil {
		return nil, fmt.Errorf("%w: dynamodb GetItem: %v", models.ErrStorage, err)
	}
	if len(out.Item) == 0 {
		return nil, models.ErrOrderNotFound
	}
	var do ddbOrder
	if err := attributevalue.UnmarshalMap(out.Item, &do); err != nil {
		return nil, fmt.Errorf("%w: unmarshal item: %v", models.ErrStorage, err)
	}
	return fromDDB(do), nil
}

func (d *DynamoOrderRepository) FindByPublicToken(ctx context.Context, token string) (*models.Order, error) {
	out, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &d.table,
		IndexName:              aws.String(PublicTokenIndex),
		KeyConditionExpression: aws.String("public_token = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: token},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: dynamodb Query: %v", models.ErrStorage, err)
	}
	if len(out.Items) == 0 {
		return nil, models.ErrOrderNotFound
	}
	var do ddbOrder
	if err := attributevalue.UnmarshalMap(out.Items[0], &do); err != nil {
		return nil, fmt.Errorf("%w: unmarshal item: %v", models.ErrStorage, err)
	}
	return fromDDB(do), nil
}

// UpdateStatus only guards on the item existing; there is no version check.
func (d *DynamoOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"order_id": id.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &d.table,
		Key:                 key,
		ConditionExpression: aws.String("attribute_exists(order_id)"),
		UpdateExpression:    aws.String("SET #s = :s, updated_at = :u"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
			":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: dynamodb UpdateItem: %v", models.ErrStorage, err)
	}
	var do ddbOrder
	if err := attributevalue.UnmarshalMap(out.Attributes, &do); err != nil {
		return nil, fmt.Errorf("%w: unmarshal item: %v", models.ErrStorage, err)
	}
	return fromDDB(do), nil
}
