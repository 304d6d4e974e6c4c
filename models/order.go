package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OrderStatus is a fulfillment status from the closed allow-list below.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusInProgress OrderStatus = "in_progress"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// AllowedStatuses is the flat allow-list. There is no transition graph:
// any member may follow any other.
var AllowedStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusShipped,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
}

// statusRank orders statuses along the forward fulfillment path. Cancelled
// sits outside the path and is never considered a backward move.
var statusRank = map[OrderStatus]int{
	StatusPending:    0,
	StatusConfirmed:  1,
	StatusInProgress: 2,
	StatusShipped:    3,
	StatusDelivered:  4,
	StatusCompleted:  5,
}

// ParseOrderStatus lower-cases and trims the input and matches it exactly
// against the allow-list.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return "", false
	}
	for _, allowed := range AllowedStatuses {
		if s == allowed {
			return s, true
		}
	}
	return "", false
}

// IsBackward reports whether moving from -> to goes back along the
// fulfillment path (for example completed -> pending).
func IsBackward(from, to OrderStatus) bool {
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok1 && ok2 && tr < fr
}

const (
	MetaPublicToken  = "public_token"
	MetaDiscountCode = "discount_code"
)

// Order is the GORM model persisted in Postgres.
type Order struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PublicToken string            `gorm:"type:varchar(64);uniqueIndex;not null;<-:create" json:"public_token"`
	Status      OrderStatus       `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Email       *string           `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone       *string           `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewOrder builds a pending order with a fresh id and public token. The
// token is mirrored into metadata so downstream consumers that only see
// metadata can still build tracking links.
func NewOrder(email, phone string) *Order {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	o := &Order{
		ID:          uuid.New(),
		PublicToken: token,
		Status:      StatusPending,
		Metadata:    datatypes.JSONMap{MetaPublicToken: token},
	}
	if email != "" {
		o.Email = &email
	}
	if phone != "" {
		o.Phone = &phone
	}
	return o
}

// ShortID is the first 8 characters of the order id, used in customer messages.
func (o *Order) ShortID() string {
	id := o.ID.String()
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ContactEmail returns the order email or "" when absent.
func (o *Order) ContactEmail() string {
	if o.Email == nil {
		return ""
	}
	return strings.TrimSpace(*o.Email)
}

// ContactPhone returns the order phone or "" when absent.
func (o *Order) ContactPhone() string {
	if o.Phone == nil {
		return ""
	}
	return strings.TrimSpace(*o.Phone)
}

// Token returns the public token, falling back to the metadata copy.
func (o *Order) Token() string {
	if o.PublicToken != "" {
		return o.PublicToken
	}
	if v, ok := o.Metadata[MetaPublicToken].(string); ok {
		return v
	}
	return ""
}

// TrackingView is the subset of an order exposed through the public token.
type TrackingView struct {
	ID        string      `json:"id"`
	Status    OrderStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (o *Order) TrackingView() TrackingView {
	return TrackingView{ID: o.ShortID(), Status: o.Status, UpdatedAt: o.UpdatedAt}
}

// UpdateStatusRequest is the payload for PATCH /orders/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
