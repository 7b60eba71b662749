package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"barterhub/internal/models"
	"barterhub/internal/service"
	"barterhub/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	marketplace  *service.MarketplaceService
	offers       *service.OfferService
	transactions *service.TransactionService
}

// NewHandler creates a new HTTP handler
func NewHandler(marketplace *service.MarketplaceService, offers *service.OfferService, transactions *service.TransactionService) *Handler {
	return &Handler{
		marketplace:  marketplace,
		offers:       offers,
		transactions: transactions,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(requireUserID())
	{
		v1.GET("/items", h.listItems)
		v1.POST("/items", h.createItem)
		v1.GET("/items/:id", h.getItem)
		v1.PUT("/items/:id/scores", h.updateItemScores)
		v1.POST("/items/:id/rooms", h.openRoom)
		v1.POST("/items/:id/offers", h.createDirectOffer)

		v1.GET("/rooms/:id/messages", h.getMessages)
		v1.POST("/rooms/:id/messages", h.postMessage)
		v1.POST("/rooms/:id/offers", h.submitOffer)

		v1.POST("/offers/:id/respond", h.respondToOffer)

		v1.GET("/transactions", h.listTransactions)
		v1.GET("/transactions/:id", h.getTransaction)
		v1.PUT("/transactions/:id/shipping-info", h.setShippingInfo)
		v1.POST("/transactions/:id/agree", h.setChatAgreement)
		v1.PUT("/transactions/:id/tracking", h.setTrackingNumber)
		v1.POST("/transactions/:id/confirm", h.confirmReceipt)
		v1.POST("/transactions/:id/auto-confirm", h.checkAutoResolution)
		v1.GET("/transactions/:id/tracking/:party", h.trackShipment)
		v1.POST("/transactions/:id/dispute", h.fileDispute)
		v1.POST("/transactions/:id/cancel", h.cancelTransaction)
		v1.POST("/transactions/:id/reviews", h.submitReview)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listItems(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.marketplace.ListAvailableItems(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) createItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	item, err := h.marketplace.CreateItem(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) getItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	item, err := h.marketplace.GetItem(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) updateItemScores(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateItemScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	item, err := h.marketplace.UpdateItemScores(c.Request.Context(), id, userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) openRoom(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	room, err := h.marketplace.OpenRoom(c.Request.Context(), id, userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *Handler) createDirectOffer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		OfferedItems []service.OfferedItemRequest `json:"offered_items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	txn, err := h.offers.CreateDirectOffer(c.Request.Context(), id, userID(c), req.OfferedItems)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (h *Handler) getMessages(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	messages, err := h.marketplace.GetMessages(c.Request.Context(), id, userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) postMessage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	msg, err := h.marketplace.PostMessage(c.Request.Context(), id, userID(c), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) submitOffer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.RoomID = id
	req.ProposerID = userID(c)

	proposal, err := h.offers.SubmitOffer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

func (h *Handler) respondToOffer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var body struct {
		Accept bool   `json:"accept"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	req := &service.RespondOfferRequest{
		ResponderID: userID(c),
		Accept:      body.Accept,
		Reason:      body.Reason,
	}
	txn, err := h.offers.RespondToOffer(c.Request.Context(), id, req)
	if errors.Is(err, service.ErrAlreadyResolved) {
		c.JSON(http.StatusOK, gin.H{"message": "Offer already resolved"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if txn == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Offer declined"})
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (h *Handler) listTransactions(c *gin.Context) {
	txns, err := h.transactions.ListTransactions(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (h *Handler) getTransaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	txn, err := h.transactions.GetTransaction(c.Request.Context(), id, userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) setShippingInfo(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.ShippingInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	txn, err := h.transactions.SetShippingInfo(c.Request.Context(), id, userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) setChatAgreement(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	txn, err := h.transactions.SetChatAgreement(c.Request.Context(), id, userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) setTrackingNumber(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		TrackingNumber string `json:"tracking_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	txn, err := h.transactions.SetTrackingNumber(c.Request.Context(), id, userID(c), req.TrackingNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) confirmReceipt(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.ConfirmReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	txn, err := h.transactions.ConfirmReceipt(c.Request.Context(), id, userID(c), req.ConfirmationCode)
	if errors.Is(err, service.ErrAlreadyConfirmed) {
		c.JSON(http.StatusOK, gin.H{"message": "Receipt already confirmed"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) checkAutoResolution(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	result, err := h.transactions.CheckAutoResolution(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) trackShipment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	party := models.Party(c.Param("party"))
	if party != models.PartySeller && party != models.PartyBuyer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "party must be seller or buyer"})
		return
	}

	status, err := h.transactions.TrackShipment(c.Request.Context(), id, userID(c), party)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) fileDispute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	txn, err := h.transactions.FileDispute(c.Request.Context(), id, userID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) cancelTransaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	txn, err := h.transactions.CancelTransaction(c.Request.Context(), id, userID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) submitReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	review, err := h.transactions.SubmitReview(c.Request.Context(), id, userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// requireUserID reads the caller identity header. There is no auth
// layer; upstream infrastructure is trusted to set X-User-ID.
func requireUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || id < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "X-User-ID header is required",
			})
			return
		}
		c.Set("userID", id)
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64("userID")
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps business errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidConfirmationCode), errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
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
