package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/BarkinBalci/attribution-relay/docs"
	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/dto"
	"github.com/BarkinBalci/attribution-relay/internal/service"
)

const webhookTokenHeader = "X-Webhook-Token"

type Handler struct {
	attributionService service.AttributionServicer
	conversionService  service.ConversionServicer
	webhookToken       string
	router             *gin.Engine
	log                *zap.Logger
}

// NewHandler wires the HTTP routes. An empty webhookToken disables the
// payment webhook check.
func NewHandler(attributionService service.AttributionServicer, conversionService service.ConversionServicer, webhookToken string, log *zap.Logger) *Handler {
	h := &Handler{
		attributionService: attributionService,
		conversionService:  conversionService,
		webhookToken:       webhookToken,
		router:             gin.Default(),
		log:                log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)

	h.router.POST("/attributions", h.recordAttribution)
	h.router.GET("/attributions/:session_id", h.getAttribution)
	h.router.GET("/attributions/transaction/:transaction_id", h.getAttributionByTransaction)

	h.router.POST("/webhooks/payments", h.requireWebhookToken, h.paymentWebhook)

	h.router.POST("/conversions/checkout", h.funnelEvent(domain.EventInitiateCheckout))
	h.router.POST("/conversions/lead", h.funnelEvent(domain.EventLead))
	h.router.GET("/conversions/metrics", h.getMetrics)

	h.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// recordAttribution handles POST /attributions
// @Summary Record session attribution
// @Description Create or merge the traffic-source record for a session. Omitted fields keep their stored value.
// @Tags attributions
// @Accept json
// @Produce json
// @Param attribution body dto.AttributionRequest true "Attribution data"
// @Success 200 {object} dto.AttributionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /attributions [post]
func (h *Handler) recordAttribution(c *gin.Context) {
	var req dto.AttributionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid attribution request",
			zap.Error(err),
			zap.String("session_id", req.SessionID))
		h.validationError(c, err)
		return
	}

	if req.ClientIP == nil {
		ip := c.ClientIP()
		req.ClientIP = &ip
	}
	if req.UserAgent == nil {
		if ua := c.Request.UserAgent(); ua != "" {
			req.UserAgent = &ua
		}
	}

	response, err := h.attributionService.Record(c.Request.Context(), &req)
	if err != nil {
		h.serviceError(c, err, "Failed to record attribution", zap.String("session_id", req.SessionID))
		return
	}

	c.JSON(http.StatusOK, response)
}

// getAttribution handles GET /attributions/{session_id}
// @Summary Get session attribution
// @Tags attributions
// @Produce json
// @Param session_id path string true "Session identifier"
// @Success 200 {object} dto.AttributionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /attributions/{session_id} [get]
func (h *Handler) getAttribution(c *gin.Context) {
	sessionID := c.Param("session_id")

	response, err := h.attributionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.serviceError(c, err, "Failed to get attribution", zap.String("session_id", sessionID))
		return
	}

	c.JSON(http.StatusOK, response)
}

// getAttributionByTransaction handles GET /attributions/transaction/{transaction_id}
// @Summary Get attribution by transaction
// @Tags attributions
// @Produce json
// @Param transaction_id path string true "Payment transaction identifier"
// @Success 200 {object} dto.AttributionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /attributions/transaction/{transaction_id} [get]
func (h *Handler) getAttributionByTransaction(c *gin.Context) {
	transactionID := c.Param("transaction_id")

	response, err := h.attributionService.GetByTransaction(c.Request.Context(), transactionID)
	if err != nil {
		h.serviceError(c, err, "Failed to get attribution", zap.String("transaction_id", transactionID))
		return
	}

	c.JSON(http.StatusOK, response)
}

// paymentWebhook handles POST /webhooks/payments
// @Summary Payment confirmation webhook
// @Description Queue a paid confirmation for Purchase dispatch. Other statuses are acknowledged and ignored.
// @Tags conversions
// @Accept json
// @Produce json
// @Param X-Webhook-Token header string false "Shared webhook secret"
// @Param payment body dto.PaymentConfirmationRequest true "Payment confirmation"
// @Success 202 {object} dto.JobAcceptedResponse
// @Success 200 {object} dto.JobAcceptedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /webhooks/payments [post]
func (h *Handler) paymentWebhook(c *gin.Context) {
	var req dto.PaymentConfirmationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid payment confirmation",
			zap.Error(err),
			zap.String("transaction_id", req.TransactionID))
		h.validationError(c, err)
		return
	}

	response, err := h.conversionService.SubmitPayment(c.Request.Context(), &req)
	if err != nil {
		h.serviceError(c, err, "Failed to submit payment",
			zap.String("transaction_id", req.TransactionID),
			zap.String("status", req.Status))
		return
	}

	h.accepted(c, response)
}

// funnelEvent handles POST /conversions/checkout and POST /conversions/lead
// @Summary Submit a funnel signal
// @Description Queue an InitiateCheckout (checkout) or Lead (lead) event for dispatch
// @Tags conversions
// @Accept json
// @Produce json
// @Param event body dto.FunnelEventRequest true "Funnel signal"
// @Success 202 {object} dto.JobAcceptedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /conversions/checkout [post]
// @Router /conversions/lead [post]
func (h *Handler) funnelEvent(name domain.EventName) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.FunnelEventRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			h.log.Warn("Invalid funnel signal",
				zap.Error(err),
				zap.String("event_name", string(name)))
			h.validationError(c, err)
			return
		}

		if req.ClientIP == "" {
			req.ClientIP = c.ClientIP()
		}
		if req.UserAgent == "" {
			req.UserAgent = c.Request.UserAgent()
		}

		response, err := h.conversionService.SubmitFunnel(c.Request.Context(), name, &req)
		if err != nil {
			h.serviceError(c, err, "Failed to submit funnel signal",
				zap.String("event_name", string(name)),
				zap.String("session_id", req.SessionID))
			return
		}

		h.accepted(c, response)
	}
}

// getMetrics handles GET /conversions/metrics
// @Summary Get conversion metrics
// @Description Aggregate delivered conversions with optional grouping by source, campaign, status, or day
// @Tags conversions
// @Produce json
// @Param event_name query string true "Event name" Enums(Purchase, InitiateCheckout, Lead)
// @Param from query int true "Start timestamp (Unix epoch)" example:"1723475612"
// @Param to query int true "End timestamp (Unix epoch)" example:"1723562012"
// @Param group_by query string false "Field to group by" Enums(source, campaign, status, day)
// @Success 200 {object} dto.GetMetricsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /conversions/metrics [get]
func (h *Handler) getMetrics(c *gin.Context) {
	var req dto.GetMetricsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid metrics request", zap.Error(err))
		h.validationError(c, err)
		return
	}

	response, err := h.conversionService.GetMetrics(c.Request.Context(), &req)
	if err != nil {
		h.serviceError(c, err, "Failed to get metrics",
			zap.String("event_name", req.EventName),
			zap.Int64("from", req.From),
			zap.Int64("to", req.To))
		return
	}

	h.log.Info("Metrics retrieved",
		zap.String("event_name", req.EventName),
		zap.Uint64("total_count", response.TotalCount),
		zap.Uint64("fallback_count", response.FallbackCount))

	c.JSON(http.StatusOK, response)
}

func (h *Handler) requireWebhookToken(c *gin.Context) {
	if h.webhookToken == "" {
		c.Next()
		return
	}

	token := c.GetHeader(webhookTokenHeader)
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.webhookToken)) != 1 {
		h.log.Warn("Rejected webhook with invalid token", zap.String("client_ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "unauthorized",
			Message: "invalid webhook token",
		})
		return
	}

	c.Next()
}

func (h *Handler) accepted(c *gin.Context, response *dto.JobAcceptedResponse) {
	if response.Status == service.StatusIgnored {
		c.JSON(http.StatusOK, response)
		return
	}

	h.log.Info("Conversion accepted", zap.String("event_id", response.EventID))
	c.JSON(http.StatusAccepted, response)
}

func (h *Handler) validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

func (h *Handler) serviceError(c *gin.Context, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		h.log.Warn(msg, append(fields, zap.Error(err))...)
		h.validationError(c, err)
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	default:
		h.log.Error(msg, append(fields, zap.Error(err))...)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}
