package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/conversion"
	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/dto"
	"github.com/BarkinBalci/attribution-relay/internal/metrics"
	"github.com/BarkinBalci/attribution-relay/internal/queue"
	"github.com/BarkinBalci/attribution-relay/internal/repository"
)

// clockSkew is how far in the future an occurred_at may be before it is rejected
const clockSkew = 5 * time.Minute

const (
	StatusAccepted = "accepted"
	StatusIgnored  = "ignored"
)

var validGroupBy = map[string]bool{"source": true, "campaign": true, "status": true, "day": true}

// ConversionService queues conversions for dispatch and reads the conversion log
type ConversionService struct {
	publisher  queue.JobPublisher
	repository repository.ConversionRepository
	now        func() time.Time
	log        *zap.Logger
}

// NewConversionService creates a new conversion service
func NewConversionService(publisher queue.JobPublisher, repo repository.ConversionRepository, log *zap.Logger) *ConversionService {
	return &ConversionService{
		publisher:  publisher,
		repository: repo,
		now:        time.Now,
		log:        log,
	}
}

// SubmitPayment queues a paid confirmation. Other statuses are acknowledged
// and dropped so the processor stops retrying its webhook.
func (s *ConversionService) SubmitPayment(ctx context.Context, req *dto.PaymentConfirmationRequest) (*dto.JobAcceptedResponse, error) {
	status := domain.PaymentStatus(req.Status)
	if status != domain.PaymentPaid {
		metrics.PaymentsIgnored.WithLabelValues(req.Status).Inc()
		s.log.Info("Payment notification ignored",
			zap.String("transaction_id", req.TransactionID),
			zap.String("status", req.Status))
		return &dto.JobAcceptedResponse{
			Status: StatusIgnored,
			Reason: fmt.Sprintf("status %s does not trigger a conversion", req.Status),
		}, nil
	}

	occurredAt, err := s.occurredAt(req.OccurredAt)
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		Type: domain.JobPayment,
		Payment: &domain.PaymentConfirmation{
			TransactionID: req.TransactionID,
			ExternalID:    req.ExternalID,
			SessionID:     req.SessionID,
			Status:        status,
			Amount:        req.Amount,
			Currency:      req.Currency,
			Customer:      toCustomer(req.Customer),
			ProductIDs:    req.ProductIDs,
			LandingPage:   req.LandingPage,
			ClientIP:      req.ClientIP,
			UserAgent:     req.UserAgent,
			OccurredAt:    occurredAt,
		},
	}

	if err := s.publisher.PublishJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to publish payment to queue: %w", err)
	}
	metrics.JobsPublished.WithLabelValues(string(job.Type)).Inc()

	return &dto.JobAcceptedResponse{
		Status:  StatusAccepted,
		EventID: conversion.EventID(req.TransactionID, domain.EventPurchase),
	}, nil
}

// SubmitFunnel queues a checkout start or lead capture signal
func (s *ConversionService) SubmitFunnel(ctx context.Context, name domain.EventName, req *dto.FunnelEventRequest) (*dto.JobAcceptedResponse, error) {
	if name == domain.EventInitiateCheckout && req.Value <= 0 {
		return nil, fmt.Errorf("%w: value must be greater than zero for %s", ErrInvalidRequest, name)
	}

	occurredAt, err := s.occurredAt(req.OccurredAt)
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		Type: domain.JobFunnel,
		Funnel: &domain.FunnelSignal{
			EventName:  name,
			SessionID:  req.SessionID,
			Value:      req.Value,
			Currency:   req.Currency,
			Customer:   toCustomer(req.Customer),
			ProductIDs: req.ProductIDs,
			SourceURL:  req.SourceURL,
			ClientIP:   req.ClientIP,
			UserAgent:  req.UserAgent,
			OccurredAt: occurredAt,
		},
	}

	if err := s.publisher.PublishJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to publish %s to queue: %w", name, err)
	}
	metrics.JobsPublished.WithLabelValues(string(job.Type)).Inc()

	return &dto.JobAcceptedResponse{
		Status:  StatusAccepted,
		EventID: conversion.EventID(req.SessionID, name),
	}, nil
}

// GetMetrics retrieves aggregated conversion metrics from the repository
func (s *ConversionService) GetMetrics(ctx context.Context, req *dto.GetMetricsRequest) (*dto.GetMetricsResponse, error) {
	if req.From > req.To {
		s.log.Warn("Invalid time range for metrics",
			zap.Int64("from", req.From),
			zap.Int64("to", req.To),
			zap.String("event_name", req.EventName))
		return nil, fmt.Errorf("%w: from timestamp must be less than or equal to to timestamp", ErrInvalidRequest)
	}

	if req.GroupBy != "" && !validGroupBy[req.GroupBy] {
		s.log.Warn("Invalid group_by value", zap.String("group_by", req.GroupBy))
		return nil, fmt.Errorf("%w: invalid group_by value: %s (supported: source, campaign, status, day)", ErrInvalidRequest, req.GroupBy)
	}

	query := repository.MetricsQuery{
		EventName: req.EventName,
		From:      req.From,
		To:        req.To,
		GroupBy:   req.GroupBy,
	}

	s.log.Info("Querying conversion metrics",
		zap.String("event_name", req.EventName),
		zap.Int64("from", req.From),
		zap.Int64("to", req.To),
		zap.String("group_by", req.GroupBy))

	result, err := s.repository.GetMetrics(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics from repository: %w", err)
	}

	response := &dto.GetMetricsResponse{
		EventName:     req.EventName,
		From:          req.From,
		To:            req.To,
		TotalCount:    result.TotalCount,
		TotalValue:    result.TotalValue,
		FallbackCount: result.FallbackCount,
		GroupBy:       req.GroupBy,
		Groups:        make([]dto.MetricsGroupData, 0, len(result.Groups)),
	}

	for _, group := range result.Groups {
		response.Groups = append(response.Groups, dto.MetricsGroupData{
			GroupValue: group.GroupValue,
			TotalCount: group.TotalCount,
			TotalValue: group.TotalValue,
		})
	}

	return response, nil
}

// occurredAt converts a unix timestamp, defaulting to now when unset
func (s *ConversionService) occurredAt(ts int64) (time.Time, error) {
	now := s.now()
	if ts == 0 {
		return now.UTC(), nil
	}
	t := time.Unix(ts, 0).UTC()
	if t.After(now.Add(clockSkew)) {
		return time.Time{}, fmt.Errorf("%w: occurred_at cannot be in the future: %d > %d", ErrInvalidRequest, ts, now.Unix())
	}
	return t, nil
}

func toCustomer(c dto.CustomerRequest) domain.Customer {
	return domain.Customer{
		Email:    c.Email,
		Phone:    c.Phone,
		Name:     c.Name,
		Document: c.Document,
	}
}
