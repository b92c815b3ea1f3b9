package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"hub_wallet/internal/models"
	"hub_wallet/internal/repository"
	"hub_wallet/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:generate mockgen -source=http_handlers.go -destination=../../test/mock_wallet_service.go -package=test WalletService

type WalletService interface {
	Create(ctx context.Context, customerID string) (models.Wallet, error)
	FindByID(ctx context.Context, walletID string) (models.Wallet, error)
	AddFunds(ctx context.Context, walletID string, amountPence int64) error
	Withdraw(ctx context.Context, walletID string, amountPence int64) error
	GetTransactions(ctx context.Context, walletID string, pageNumber, pageSize int) (models.TransactionsPage, error)
	Reconcile(ctx context.Context, walletID string) (models.Reconciliation, error)
}

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 5
	MaxPageSize       = 100
)

type WalletHTTPHandler struct {
	service          WalletService
	defaultPageSize  int
	maxPageSize      int
	adjustMiddleware []gin.HandlerFunc
}

type Option func(*WalletHTTPHandler)

func WithPageSizes(defaultSize, maxSize int) Option {
	return func(h *WalletHTTPHandler) {
		h.defaultPageSize = defaultSize
		h.maxPageSize = maxSize
	}
}

// WithAdjustMiddleware runs mw in front of the add-funds and withdraw-funds routes only.
func WithAdjustMiddleware(mw ...gin.HandlerFunc) Option {
	return func(h *WalletHTTPHandler) {
		h.adjustMiddleware = append(h.adjustMiddleware, mw...)
	}
}

func NewWalletHTTPHandler(service WalletService, opts ...Option) *WalletHTTPHandler {
	h := &WalletHTTPHandler{
		service:         service,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WalletHTTPHandler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/wallets", h.HandleCreateWallet)
		v1.GET("/wallets/:wallet_id", h.HandleGetWallet)
		v1.GET("/wallets/:wallet_id/transactions", h.HandleGetTransactions)
		v1.GET("/wallets/:wallet_id/reconciliation", h.HandleReconcile)

		adjust := v1.Group("/wallets/:wallet_id", h.adjustMiddleware...)
		adjust.POST("/add-funds", h.HandleAddFunds)
		adjust.POST("/withdraw-funds", h.HandleWithdraw)
	}
}

func (h *WalletHTTPHandler) HandleCreateWallet(c *gin.Context) {
	var req models.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	wallet, err := h.service.Create(c.Request.Context(), req.CustomerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewWalletResponse(wallet))
}

func (h *WalletHTTPHandler) HandleGetWallet(c *gin.Context) {
	walletID, ok := walletIDParam(c)
	if !ok {
		return
	}
	wallet, err := h.service.FindByID(c.Request.Context(), walletID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewWalletResponse(wallet))
}

func (h *WalletHTTPHandler) HandleAddFunds(c *gin.Context) {
	h.handleAdjustment(c, h.service.AddFunds)
}

func (h *WalletHTTPHandler) HandleWithdraw(c *gin.Context) {
	h.handleAdjustment(c, h.service.Withdraw)
}

func (h *WalletHTTPHandler) handleAdjustment(
	c *gin.Context,
	apply func(ctx context.Context, walletID string, amountPence int64) error,
) {
	walletID, ok := walletIDParam(c)
	if !ok {
		return
	}
	var req models.BalanceAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if err := apply(c.Request.Context(), walletID, *req.AmountPence); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WalletHTTPHandler) HandleGetTransactions(c *gin.Context) {
	walletID, ok := walletIDParam(c)
	if !ok {
		return
	}
	var q models.TransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	page, size := DefaultPageNumber, h.defaultPageSize
	if q.Page != nil {
		page = *q.Page
	}
	if q.Size != nil {
		size = *q.Size
	}
	if page < 1 {
		writeError(c, service.ErrInvalidPageNumber)
		return
	}
	if size > h.maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("maximum page size is %d", h.maxPageSize)})
		return
	}

	result, err := h.service.GetTransactions(c.Request.Context(), walletID, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WalletHTTPHandler) HandleReconcile(c *gin.Context) {
	walletID, ok := walletIDParam(c)
	if !ok {
		return
	}
	rec, err := h.service.Reconcile(c.Request.Context(), walletID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// walletIDParam accepts only UUIDs, the form wallet ids are issued in, and
// returns the canonical lower-case string.
func walletIDParam(c *gin.Context) (string, bool) {
	walletID, err := uuid.Parse(c.Param("wallet_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet_id"})
		return "", false
	}
	return walletID.String(), true
}

func writeError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
	case errors.Is(err, repository.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrWalletAlreadyExist):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInternalInconsistency):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	}
}
