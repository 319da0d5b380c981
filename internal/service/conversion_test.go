package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/attribution-relay/internal/conversion"
	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/dto"
	"github.com/BarkinBalci/attribution-relay/internal/repository"
)

const (
	testCurrentTime int64 = 1766702551
	testFutureTime  int64 = 2556144000
)

// MockJobPublisher is a mock implementation of queue.JobPublisher
type MockJobPublisher struct {
	mock.Mock
}

func (m *MockJobPublisher) PublishJob(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockConversionRepository is a mock implementation of repository.ConversionRepository
type MockConversionRepository struct {
	mock.Mock
}

func (m *MockConversionRepository) InsertBatch(ctx context.Context, records []*domain.ConversionRecord) (int, error) {
	args := m.Called(ctx, records)
	return args.Int(0), args.Error(1)
}

func (m *MockConversionRepository) InitSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockConversionRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockConversionRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConversionRepository) GetMetrics(ctx context.Context, query repository.MetricsQuery) (*repository.MetricsResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.MetricsResult), args.Error(1)
}

func newConversionService(publisher *MockJobPublisher, repo *MockConversionRepository) *ConversionService {
	s := NewConversionService(publisher, repo, zap.NewNop())
	s.now = func() time.Time { return time.Unix(testCurrentTime, 0) }
	return s
}

func paidRequest() *dto.PaymentConfirmationRequest {
	return &dto.PaymentConfirmationRequest{
		TransactionID: "t1",
		SessionID:     "s1",
		Status:        "paid",
		Amount:        27.90,
		Currency:      "BRL",
		Customer:      dto.CustomerRequest{Email: "a@b.com"},
		OccurredAt:    testCurrentTime,
	}
}

func TestConversionService_SubmitPayment_Paid(t *testing.T) {
	mockPublisher := new(MockJobPublisher)
	service := newConversionService(mockPublisher, new(MockConversionRepository))

	var published *domain.Job
	mockPublisher.On("PublishJob", mock.Anything, mock.AnythingOfType("*domain.Job")).
		Run(func(args mock.Arguments) { published = args.Get(1).(*domain.Job) }).
		Return(nil)

	resp, err := service.SubmitPayment(context.Background(), paidRequest())

	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, resp.Status)
	assert.Equal(t, conversion.EventID("t1", domain.EventPurchase), resp.EventID)

	require.NotNil(t, published)
	assert.Equal(t, domain.JobPayment, published.Type)
	assert.Equal(t, "t1", published.Payment.TransactionID)
	assert.Equal(t, domain.PaymentPaid, published.Payment.Status)
	assert.Equal(t, "a@b.com", published.Payment.Customer.Email)
	assert.Equal(t, testCurrentTime, published.Payment.OccurredAt.Unix())
	mockPublisher.AssertExpectations(t)
}

func TestConversionService_SubmitPayment_SameTransactionSameEventID(t *testing.T) {
	mockPublisher := new(MockJobPublisher)
	service := newConversionService(mockPublisher, new(MockConversionRepository))
	mockPublisher.On("PublishJob", mock.Anything, mock.Anything).Return(nil)

	first, err := service.SubmitPayment(context.Background(), paidRequest())
	require.NoError(t, err)
	second, err := service.SubmitPayment(context.Background(), paidRequest())
	require.NoError(t, err)

	assert.Equal(t, first.EventID, second.EventID)
	mockPublisher.AssertNumberOfCalls(t, "PublishJob", 2)
}

func TestConversionService_SubmitPayment_NonPaidIgnored(t *testing.T) {
	for _, status := range []string{"pending", "failed", "expired"} {
		t.Run(status, func(t *testing.T) {
			mockPublisher := new(MockJobPublisher)
			service := newConversionService(mockPublisher, new(MockConversionRepository))

			req := paidRequest()
			req.Status = status

			resp, err := service.SubmitPayment(context.Background(), req)

			require.NoError(t, err)
			assert.Equal(t, StatusIgnored, resp.Status)
			assert.Empty(t, resp.EventID)
			assert.Contains(t, resp.Reason, status)
			mockPublisher.AssertNotCalled(t, "PublishJob", mock.Anything, mock.Anything)
		})
	}
}

func TestConversionService_SubmitPayment_FutureTimestamp(t *testing.T) {
	mockPublisher := new(MockJobPublisher)
	service := newConversionService(mockPublisher, new(MockConversionRepository))

	req := paidRequest()
	req.OccurredAt = testFutureTime

	resp, err := service.SubmitPayment(context.Background(), req)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "occurred_at cannot be in the future")
	mockPublisher.AssertNotCalled(t, "PublishJob", mock.Anything, mock.Anything)
}

func TestConversionService_SubmitPayment_MissingTimestampDefaultsToNow(t *testing.T) {
	mockPublisher := new(MockJobPublisher)
	service := newConversionService(mockPublisher, new(MockConversionRepository))

	var published *domain.Job
	mockPublisher.On("PublishJob", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(1).(*domain.Job) }).
		Return(nil)

	req := paidRequest()
	req.OccurredAt = 0

	_, err := service.SubmitPayment(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, testCurrentTime, published.Payment.OccurredAt.Unix())
}

func TestConversionService_SubmitPayment_PublishError(t *testing.T) {
	mockPublisher := new(MockJobPublisher)
	service := newConversionService(mockPublisher, new(MockConversionRepository))
	mockPublisher.On("PublishJob", mock.Anything, mock.Anything).Return(errors.New("queue publish error"))

	resp, err := service.SubmitPayment(context.Background(), paidRequest())

	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "failed to publish payment to queue")
}

func TestConversionService_SubmitFunnel(t *testing.T) {
	mockPublisher := new(MockJobPublisher)
	service := newConversionService(mockPublisher, new(MockConversionRepository))

	var published *domain.Job
	mockPublisher.On("PublishJob", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(1).(*domain.Job) }).
		Return(nil)

	resp, err := service.SubmitFunnel(context.Background(), domain.EventLead, &dto.FunnelEventRequest{
		SessionID: "s7",
		Customer:  dto.CustomerRequest{Phone: "11912345678"},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, resp.Status)
	assert.Equal(t, conversion.EventID("s7", domain.EventLead), resp.EventID)
	assert.Equal(t, domain.JobFunnel, published.Type)
	assert.Equal(t, domain.EventLead, published.Funnel.EventName)
	assert.Equal(t, "11912345678", published.Funnel.Customer.Phone)
}

func TestConversionService_SubmitFunnel_CheckoutRequiresValue(t *testing.T) {
	mockPublisher := new(MockJobPublisher)
	service := newConversionService(mockPublisher, new(MockConversionRepository))

	resp, err := service.SubmitFunnel(context.Background(), domain.EventInitiateCheckout, &dto.FunnelEventRequest{SessionID: "s1"})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	mockPublisher.AssertNotCalled(t, "PublishJob", mock.Anything, mock.Anything)
}

func TestConversionService_GetMetrics_Success(t *testing.T) {
	mockRepo := new(MockConversionRepository)
	service := newConversionService(new(MockJobPublisher), mockRepo)

	req := &dto.GetMetricsRequest{
		EventName: "Purchase",
		From:      testCurrentTime - 3600,
		To:        testCurrentTime,
		GroupBy:   "source",
	}

	mockRepo.On("GetMetrics", mock.Anything, repository.MetricsQuery{
		EventName: "Purchase",
		From:      req.From,
		To:        req.To,
		GroupBy:   "source",
	}).Return(&repository.MetricsResult{
		TotalCount:    3,
		TotalValue:    105.70,
		FallbackCount: 1,
		Groups: []repository.MetricsGroupResult{
			{GroupValue: "facebook", TotalCount: 2, TotalValue: 55.70},
			{GroupValue: "lost_attribution_sentinel", TotalCount: 1, TotalValue: 50},
		},
	}, nil)

	resp, err := service.GetMetrics(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Purchase", resp.EventName)
	assert.Equal(t, uint64(3), resp.TotalCount)
	assert.Equal(t, uint64(1), resp.FallbackCount)
	assert.Equal(t, "source", resp.GroupBy)
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, "facebook", resp.Groups[0].GroupValue)
	assert.Equal(t, 55.70, resp.Groups[0].TotalValue)
	mockRepo.AssertExpectations(t)
}

func TestConversionService_GetMetrics_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  *dto.GetMetricsRequest
	}{
		{"inverted range", &dto.GetMetricsRequest{EventName: "Purchase", From: testCurrentTime, To: testCurrentTime - 1}},
		{"unknown group", &dto.GetMetricsRequest{EventName: "Purchase", From: 1, To: 2, GroupBy: "country"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockConversionRepository)
			service := newConversionService(new(MockJobPublisher), mockRepo)

			resp, err := service.GetMetrics(context.Background(), tt.req)

			assert.Nil(t, resp)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			mockRepo.AssertNotCalled(t, "GetMetrics", mock.Anything, mock.Anything)
		})
	}
}

func TestConversionService_GetMetrics_RepositoryError(t *testing.T) {
	mockRepo := new(MockConversionRepository)
	service := newConversionService(new(MockJobPublisher), mockRepo)
	mockRepo.On("GetMetrics", mock.Anything, mock.Anything).Return(nil, errors.New("clickhouse down"))

	resp, err := service.GetMetrics(context.Background(), &dto.GetMetricsRequest{EventName: "Lead", From: 1, To: 2})

	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get metrics from repository")
}
