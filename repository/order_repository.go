package repository

import (
	"context"
	"errors"
	"fmt"
	"order-status-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository is the order store used by the status service.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPublicToken(ctx context.Context, token string) (*models.Order, error)
	// UpdateStatus writes the status field only and returns the stored row.
	// Concurrent writers resolve last-write-wins.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormOrderRepository) FindByPublicToken(ctx context.Context, token string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).
		Where("public_token = ?", token).
		First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

// UpdateStatus returns the row as written by its own UPDATE ... RETURNING,
// never a later re-read.
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	var o models.Order
	res := r.db.WithContext(ctx).
		Model(&o).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrOrderNotFound
	}
	return &o, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrOrderNotFound
	}
	return fmt.Errorf("%w: %v", models.ErrStorage, err)
}
