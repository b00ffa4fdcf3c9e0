package api

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vidar/internal/common"
	"vidar/internal/engine"
)

// traderHeader carries the caller identity. Authenticating it is the
// transport's concern; the engine only compares it for equality.
const traderHeader = "X-Trader-ID"

// Handler exposes the book over HTTP.
type Handler struct {
	book *engine.Book
}

func NewHandler(book *engine.Book) *Handler {
	return &Handler{book: book}
}

// RegisterRoutes sets up the Gin routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/order", h.PlaceOrder)
		v1.DELETE("/order/:id", h.CancelOrder)
		v1.GET("/order/:id", h.GetOrder)
		v1.GET("/orders/open", h.OpenOrders)
		v1.POST("/match", h.MatchOrders)
		v1.GET("/trader/:id/stats", h.TraderStats)
		v1.GET("/stats", h.BookStats)
	}
}

// Health returns a health check response.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "vidar",
	})
}

// orderView is the wire form of an order. Amounts are decimal strings
// since they exceed the JSON-safe integer range.
type orderView struct {
	ID          uint64    `json:"id"`
	Owner       string    `json:"owner"`
	BaseAmount  string    `json:"base_amount"`
	QuoteAmount string    `json:"quote_amount"`
	Side        string    `json:"side"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func viewOf(o common.Order) orderView {
	return orderView{
		ID:          o.ID,
		Owner:       o.Owner,
		BaseAmount:  o.BaseAmount.String(),
		QuoteAmount: o.QuoteAmount.String(),
		Side:        o.Side.String(),
		Status:      o.Status.String(),
		CreatedAt:   o.CreatedAt,
	}
}

// PlaceOrderRequest is the request body for placing an order.
type PlaceOrderRequest struct {
	BaseAmount  string `json:"base_amount" binding:"required"`
	QuoteAmount string `json:"quote_amount" binding:"required"`
	Side        string `json:"side" binding:"required"`
}

// PlaceOrder handles POST /v1/order.
func (h *Handler) PlaceOrder(c *gin.Context) {
	owner := c.GetHeader(traderHeader)
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": traderHeader + " header is required"})
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var side common.Side
	switch req.Side {
	case "buy":
		side = common.Buy
	case "sell":
		side = common.Sell
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be 'buy' or 'sell'"})
		return
	}

	base, ok := parseAmount(req.BaseAmount)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_amount must be a non-negative decimal string"})
		return
	}
	quote, ok := parseAmount(req.QuoteAmount)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quote_amount must be a non-negative decimal string"})
		return
	}

	id, err := h.book.PlaceOrder(owner, base, quote, side)
	if err != nil {
		writeError(c, err)
		return
	}

	OrdersPlacedTotal.WithLabelValues(side.String()).Inc()
	c.JSON(http.StatusCreated, gin.H{"order_id": id})
}

// CancelOrder handles DELETE /v1/order/:id.
func (h *Handler) CancelOrder(c *gin.Context) {
	caller := c.GetHeader(traderHeader)
	if caller == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": traderHeader + " header is required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id must be a positive integer"})
		return
	}

	if err := h.book.CancelOrder(caller, id); err != nil {
		writeError(c, err)
		return
	}

	OrdersCancelledTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"order_id": id, "status": common.Cancelled.String()})
}

// GetOrder handles GET /v1/order/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id must be a positive integer"})
		return
	}

	order, ok := h.book.GetOrder(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found", "exists": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": viewOf(order), "exists": true})
}

// OpenOrders handles GET /v1/orders/open.
func (h *Handler) OpenOrders(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100
	}

	orders := h.book.OpenOrders(limit)
	views := make([]orderView, len(orders))
	for i, o := range orders {
		views[i] = viewOf(o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// MatchOrdersRequest is the request body for batch matching.
type MatchOrdersRequest struct {
	BuyIDs  []uint64 `json:"buy_ids"`
	SellIDs []uint64 `json:"sell_ids"`
}

// MatchOrders handles POST /v1/match.
func (h *Handler) MatchOrders(c *gin.Context) {
	var req MatchOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matched, err := h.book.MatchOrders(req.BuyIDs, req.SellIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	OrdersMatchedTotal.Add(float64(matched))
	c.JSON(http.StatusOK, gin.H{
		"submitted":   len(req.BuyIDs),
		"match_count": matched,
	})
}

// TraderStats handles GET /v1/trader/:id/stats.
func (h *Handler) TraderStats(c *gin.Context) {
	stats := h.book.TraderStats(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"order_count":     stats.OrderCount,
		"settled_balance": stats.SettledBalance.String(),
	})
}

// BookStats handles GET /v1/stats.
func (h *Handler) BookStats(c *gin.Context) {
	stats := h.book.Stats()
	c.JSON(http.StatusOK, gin.H{
		"placed":    stats.Placed,
		"matched":   stats.Matched,
		"cancelled": stats.Cancelled,
	})
}

func parseAmount(s string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() < 0 {
		return nil, false
	}
	return amount, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidAmount), errors.Is(err, engine.ErrInvalidBatchSize):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrUnauthorized):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
