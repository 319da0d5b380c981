package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/dto"
	"github.com/BarkinBalci/attribution-relay/internal/metrics"
	"github.com/BarkinBalci/attribution-relay/internal/repository"
)

// AttributionService writes and reads session attribution
type AttributionService struct {
	repository repository.AttributionRepository
	log        *zap.Logger
}

// NewAttributionService creates a new attribution service
func NewAttributionService(repo repository.AttributionRepository, log *zap.Logger) *AttributionService {
	return &AttributionService{
		repository: repo,
		log:        log,
	}
}

// Record merges the request into the session's record
func (s *AttributionService) Record(ctx context.Context, req *dto.AttributionRequest) (*dto.AttributionResponse, error) {
	fields := domain.AttributionFields{
		TransactionID: req.TransactionID,
		Source:        req.Source,
		Medium:        req.Medium,
		Campaign:      req.Campaign,
		Term:          req.Term,
		Content:       req.Content,
		ClickID:       req.ClickID,
		BrowserID:     req.BrowserID,
		LandingPage:   req.LandingPage,
		Referrer:      req.Referrer,
		Email:         req.Email,
		Phone:         req.Phone,
		Name:          req.Name,
		ClientIP:      req.ClientIP,
		UserAgent:     req.UserAgent,
	}

	rec, err := s.repository.Put(ctx, req.SessionID, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to store attribution: %w", err)
	}

	metrics.AttributionsWritten.Inc()
	s.log.Debug("Attribution stored",
		zap.String("session_id", rec.SessionID),
		zap.String("source", rec.Source),
		zap.String("campaign", rec.Campaign))

	return toAttributionResponse(rec), nil
}

// Get returns the record for a session
func (s *AttributionService) Get(ctx context.Context, sessionID string) (*dto.AttributionResponse, error) {
	return s.lookup(s.repository.Get(ctx, sessionID))
}

// GetByTransaction returns the record associated with a transaction
func (s *AttributionService) GetByTransaction(ctx context.Context, transactionID string) (*dto.AttributionResponse, error) {
	return s.lookup(s.repository.GetByTransaction(ctx, transactionID))
}

func (s *AttributionService) lookup(rec *domain.AttributionRecord, err error) (*dto.AttributionResponse, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read attribution: %w", err)
	}
	return toAttributionResponse(rec), nil
}

func toAttributionResponse(rec *domain.AttributionRecord) *dto.AttributionResponse {
	return &dto.AttributionResponse{
		SessionID:     rec.SessionID,
		TransactionID: rec.TransactionID,
		Source:        rec.Source,
		Medium:        rec.Medium,
		Campaign:      rec.Campaign,
		Term:          rec.Term,
		Content:       rec.Content,
		ClickID:       rec.ClickID,
		BrowserID:     rec.BrowserID,
		LandingPage:   rec.LandingPage,
		Referrer:      rec.Referrer,
		Email:         rec.Email,
		Phone:         rec.Phone,
		Name:          rec.Name,
		ClientIP:      rec.ClientIP,
		UserAgent:     rec.UserAgent,
		Fallback:      rec.Fallback,
		CreatedAt:     rec.CreatedAt.Unix(),
		UpdatedAt:     rec.UpdatedAt.Unix(),
	}
}
