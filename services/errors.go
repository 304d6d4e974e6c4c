package services

import (
	"errors"
	"net/http"
	"order-status-service/models"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

// toServiceError maps store and validation sentinels to their HTTP shape.
func toServiceError(err error) *ServiceError {
	switch {
	case errors.Is(err, models.ErrInvalidOrderID):
		return &ServiceError{StatusCode: http.StatusBadRequest, Code: "invalid_order_id", Message: "Invalid order ID", Err: err}
	case errors.Is(err, models.ErrInvalidStatus):
		return &ServiceError{StatusCode: http.StatusBadRequest, Code: "invalid_status", Message: "Invalid status", Err: err}
	case errors.Is(err, models.ErrOrderNotFound):
		return &ServiceError{StatusCode: http.StatusNotFound, Code: "not_found", Message: "Order not found", Err: err}
	default:
		return &ServiceError{StatusCode: http.StatusInternalServerError, Code: "storage_failure", Message: "Failed to update order", Err: err}
	}
}
