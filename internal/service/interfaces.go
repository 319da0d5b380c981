package service

import (
	"context"
	"errors"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/dto"
)

// ErrInvalidRequest marks request problems the caller must fix
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound is returned when a lookup key has no stored record
var ErrNotFound = errors.New("not found")

// AttributionServicer defines the interface for attribution operations
type AttributionServicer interface {
	Record(ctx context.Context, req *dto.AttributionRequest) (*dto.AttributionResponse, error)
	Get(ctx context.Context, sessionID string) (*dto.AttributionResponse, error)
	GetByTransaction(ctx context.Context, transactionID string) (*dto.AttributionResponse, error)
}

// ConversionServicer defines the interface for conversion operations
type ConversionServicer interface {
	SubmitPayment(ctx context.Context, req *dto.PaymentConfirmationRequest) (*dto.JobAcceptedResponse, error)
	SubmitFunnel(ctx context.Context, name domain.EventName, req *dto.FunnelEventRequest) (*dto.JobAcceptedResponse, error)
	GetMetrics(ctx context.Context, req *dto.GetMetricsRequest) (*dto.GetMetricsResponse, error)
}
