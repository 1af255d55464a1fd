package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"order-composer/internal/catalog"
	"order-composer/internal/composer"
	"order-composer/internal/models"
	"order-composer/internal/service"
	"order-composer/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const sessionKey = "session"

// ComposerService is what the handlers drive
type ComposerService interface {
	GetDraft(ctx context.Context, s models.Session) (*service.DraftView, error)
	SelectCustomer(ctx context.Context, s models.Session, customerID string) (*service.DraftView, error)
	AddLine(ctx context.Context, s models.Session, req service.AddLineRequest) (*service.DraftView, error)
	UpdateQuantity(ctx context.Context, s models.Session, index, quantity int) (*service.DraftView, error)
	RemoveLine(ctx context.Context, s models.Session, index int) (*service.DraftView, error)
	SetShippingFee(ctx context.Context, s models.Session, fee decimal.Decimal) (*service.DraftView, error)
	SetNotes(ctx context.Context, s models.Session, notes string) (*service.DraftView, error)
	DiscardDraft(ctx context.Context, s models.Session) error
	SubmitDraft(ctx context.Context, s models.Session, idempotencyKey string) (*service.SubmitResponse, error)
	ListCustomers(ctx context.Context, s models.Session) ([]models.Customer, error)
	ListProducts(ctx context.Context, s models.Session) ([]models.Product, error)
	ListSubmissions(ctx context.Context, s models.Session, limit int) ([]models.Submission, error)
}

// Pinger is a dependency checked by /ready
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	composer ComposerService
	deps     map[string]Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(composer ComposerService, deps map[string]Pinger) *Handler {
	return &Handler{
		composer: composer,
		deps:     deps,
		logger:   util.GetLogger(),
	}
}

type selectCustomerRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type shippingRequest struct {
	ShippingFee decimal.Decimal `json:"shipping_fee"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type submitRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", sessionMiddleware())
	{
		v1.GET("/catalog/customers", h.listCustomers)
		v1.GET("/catalog/products", h.listProducts)

		v1.GET("/draft", h.getDraft)
		v1.DELETE("/draft", h.discardDraft)
		v1.PUT("/draft/customer", h.selectCustomer)
		v1.POST("/draft/lines", h.addLine)
		v1.PATCH("/draft/lines/:index", h.updateLine)
		v1.DELETE("/draft/lines/:index", h.removeLine)
		v1.PUT("/draft/shipping", h.setShipping)
		v1.PUT("/draft/notes", h.setNotes)
		v1.POST("/draft/submit", h.submitDraft)

		v1.GET("/submissions", h.listSubmissions)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listCustomers(c *gin.Context) {
	customers, err := h.composer.ListCustomers(c.Request.Context(), session(c))
	if err != nil {
		h.fail(c, "Failed to load customers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.composer.ListProducts(c.Request.Context(), session(c))
	if err != nil {
		h.fail(c, "Failed to load products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getDraft(c *gin.Context) {
	draft, err := h.composer.GetDraft(c.Request.Context(), session(c))
	h.respond(c, "Failed to load draft", draft, err)
}

func (h *Handler) discardDraft(c *gin.Context) {
	if err := h.composer.DiscardDraft(c.Request.Context(), session(c)); err != nil {
		h.fail(c, "Failed to discard draft", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) selectCustomer(c *gin.Context) {
	var req selectCustomerRequest
	if !bind(c, &req) {
		return
	}
	draft, err := h.composer.SelectCustomer(c.Request.Context(), session(c), req.CustomerID)
	h.respond(c, "Failed to select customer", draft, err)
}

func (h *Handler) addLine(c *gin.Context) {
	var req service.AddLineRequest
	if !bind(c, &req) {
		return
	}
	draft, err := h.composer.AddLine(c.Request.Context(), session(c), req)
	h.respond(c, "Failed to add line", draft, err)
}

func (h *Handler) updateLine(c *gin.Context) {
	index, ok := lineIndex(c)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if !bind(c, &req) {
		return
	}
	draft, err := h.composer.UpdateQuantity(c.Request.Context(), session(c), index, *req.Quantity)
	h.respond(c, "Failed to update line", draft, err)
}

func (h *Handler) removeLine(c *gin.Context) {
	index, ok := lineIndex(c)
	if !ok {
		return
	}
	draft, err := h.composer.RemoveLine(c.Request.Context(), session(c), index)
	h.respond(c, "Failed to remove line", draft, err)
}

func (h *Handler) setShipping(c *gin.Context) {
	var req shippingRequest
	if !bind(c, &req) {
		return
	}
	draft, err := h.composer.SetShippingFee(c.Request.Context(), session(c), req.ShippingFee)
	h.respond(c, "Failed to set shipping fee", draft, err)
}

func (h *Handler) setNotes(c *gin.Context) {
	var req notesRequest
	if !bind(c, &req) {
		return
	}
	draft, err := h.composer.SetNotes(c.Request.Context(), session(c), req.Notes)
	h.respond(c, "Failed to set notes", draft, err)
}

// submitDraft takes the idempotency key from the body or the Idempotency-Key header
func (h *Handler) submitDraft(c *gin.Context) {
	var req submitRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.composer.SubmitDraft(c.Request.Context(), session(c), req.IdempotencyKey)
	if err != nil {
		h.fail(c, "Failed to submit order", err)
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (h *Handler) listSubmissions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid limit",
		})
		return
	}

	subs, err := h.composer.ListSubmissions(c.Request.Context(), session(c), limit)
	if err != nil {
		h.fail(c, "Failed to list submissions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (h *Handler) respond(c *gin.Context, msg string, draft *service.DraftView, err error) {
	if err != nil {
		h.fail(c, msg, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg,
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, composer.ErrCapacityExceeded),
		errors.Is(err, composer.ErrSubmissionInProgress):
		return http.StatusConflict
	case errors.Is(err, composer.ErrLineNotFound),
		errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case composer.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, composer.ErrSubmissionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func lineIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid line index",
		})
		return 0, false
	}
	return index, true
}

// sessionMiddleware resolves who is composing from the request headers
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := models.Session{
			BusinessID: c.GetHeader("X-Business-ID"),
			UserID:     c.GetHeader("X-User-ID"),
		}
		if s.BusinessID == "" || s.UserID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "Missing session",
				"details": "X-Business-ID and X-User-ID headers are required",
			})
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

func session(c *gin.Context) models.Session {
	s, _ := c.MustGet(sessionKey).(models.Session)
	return s
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
