package api

import (
	"net/http"
	"strconv"
	"time"

	"glowhair/internal/cart"
	"glowhair/internal/checkout"
	"glowhair/internal/models"
	"glowhair/internal/service"
	"glowhair/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionHeader = "X-Session-ID"

// Handler contains HTTP handlers
type Handler struct {
	carts        *cart.Manager
	checkouts    *checkout.Manager
	orderService *service.OrderService
	placer       checkout.OrderPlacer
	totalsClient *service.TotalsClient
	timing       checkout.Timing
}

// NewHandler creates a new HTTP handler. placer is what checkout
// sessions submit through; totalsClient may be nil, in which case the
// totals endpoint always prices locally.
func NewHandler(
	carts *cart.Manager,
	checkouts *checkout.Manager,
	orderService *service.OrderService,
	placer checkout.OrderPlacer,
	totalsClient *service.TotalsClient,
	timing checkout.Timing,
) *Handler {
	return &Handler{
		carts:        carts,
		checkouts:    checkouts,
		orderService: orderService,
		placer:       placer,
		totalsClient: totalsClient,
		timing:       timing,
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

	api := router.Group("/api")
	{
		api.GET("/products", h.listProducts)
		api.GET("/products/:id", h.getProduct)

		api.GET("/cart", h.getCart)
		api.POST("/cart/items", h.addCartItem)
		api.PUT("/cart/items/:productId", h.updateCartItem)
		api.DELETE("/cart/items/:productId", h.removeCartItem)
		api.DELETE("/cart", h.clearCart)
		api.POST("/cart/toggle", h.toggleCart)
		api.POST("/cart/open", h.openCart)
		api.POST("/cart/close", h.closeCart)
		api.GET("/cart/totals", h.cartTotals)

		api.POST("/checkout", h.startCheckout)
		api.GET("/checkout/:id", h.checkoutState)
		api.PUT("/checkout/:id/form", h.updateCheckoutForm)
		api.POST("/checkout/:id/next", h.checkoutNext)
		api.POST("/checkout/:id/prev", h.checkoutPrev)
		api.POST("/checkout/:id/submit", h.checkoutSubmit)
		api.DELETE("/checkout/:id", h.abandonCheckout)

		api.POST("/orders", h.createOrder)
		api.GET("/orders/:id", h.getOrder)
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

// sessionCart resolves the cart for the request's session, minting a
// session id when the client has none yet.
func (h *Handler) sessionCart(c *gin.Context) (*cart.Store, string) {
	sid := c.GetHeader(sessionHeader)
	if sid == "" {
		sid = uuid.New().String()
	}
	c.Header(sessionHeader, sid)
	return h.carts.Get(c.Request.Context(), sid), sid
}

func cartView(s *cart.Store) gin.H {
	return gin.H{
		"items":      s.Items(),
		"total":      s.Total(),
		"item_count": s.ItemCount(),
		"is_open":    s.IsOpen(),
	}
}

func (h *Handler) getCart(c *gin.Context) {
	s, _ := h.sessionCart(c)
	c.JSON(http.StatusOK, cartView(s))
}

type addItemRequest struct {
	Product  models.Product `json:"product" binding:"required"`
	Quantity int            `json:"quantity"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	s, _ := h.sessionCart(c)
	s.AddItem(c.Request.Context(), req.Product, req.Quantity)
	c.JSON(http.StatusOK, cartView(s))
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateCartItem(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	s, _ := h.sessionCart(c)
	s.UpdateQuantity(c.Request.Context(), productID, req.Quantity)
	c.JSON(http.StatusOK, cartView(s))
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	s, _ := h.sessionCart(c)
	s.RemoveItem(c.Request.Context(), productID)
	c.JSON(http.StatusOK, cartView(s))
}

func (h *Handler) clearCart(c *gin.Context) {
	s, _ := h.sessionCart(c)
	s.Clear(c.Request.Context())
	c.JSON(http.StatusOK, cartView(s))
}

func (h *Handler) toggleCart(c *gin.Context) {
	s, _ := h.sessionCart(c)
	s.Toggle()
	c.JSON(http.StatusOK, cartView(s))
}

func (h *Handler) openCart(c *gin.Context) {
	s, _ := h.sessionCart(c)
	s.Open()
	c.JSON(http.StatusOK, cartView(s))
}

func (h *Handler) closeCart(c *gin.Context) {
	s, _ := h.sessionCart(c)
	s.Close()
	c.JSON(http.StatusOK, cartView(s))
}

// cartTotals prices the stored cart. When a remote totals endpoint is
// configured it is consulted first; any failure falls back to the local
// quote so the cart page never blocks on it.
func (h *Handler) cartTotals(c *gin.Context) {
	s, sid := h.sessionCart(c)
	method := c.DefaultQuery("delivery_method", models.DeliveryMethodDelivery)
	city := c.Query("city")

	if h.totalsClient != nil {
		if totals, err := h.totalsClient.Fetch(c.Request.Context(), sid); err == nil {
			c.JSON(http.StatusOK, totals)
			return
		}
	}

	c.JSON(http.StatusOK, checkout.Quote(s.Items(), method, city))
}

type startCheckoutRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *Handler) startCheckout(c *gin.Context) {
	var req startCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	s, _ := h.sessionCart(c)
	session := checkout.NewSession(req.UserID, s, h.placer, h.timing)
	h.checkouts.Put(session)

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID(),
		"step":       session.Step(),
	})
}

func (h *Handler) checkoutSession(c *gin.Context) *checkout.Session {
	session := h.checkouts.Get(c.Param("id"))
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checkout session not found"})
		return nil
	}
	return session
}

func checkoutView(s *checkout.Session) gin.H {
	submitted, orderID := s.Submitted()
	view := gin.H{
		"session_id":   s.ID(),
		"step":         s.Step(),
		"form":         s.Form(),
		"field_errors": s.FieldErrors(),
		"totals":       s.Totals(),
		"submitted":    submitted,
	}
	if submitted {
		view["order_id"] = orderID
	}
	if msg := s.ErrorMessage(); msg != "" {
		view["error_message"] = msg
	}
	return view
}

func (h *Handler) checkoutState(c *gin.Context) {
	session := h.checkoutSession(c)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, checkoutView(session))
}

func (h *Handler) updateCheckoutForm(c *gin.Context) {
	session := h.checkoutSession(c)
	if session == nil {
		return
	}

	var form checkout.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	session.SetForm(form)
	c.JSON(http.StatusOK, checkoutView(session))
}

func (h *Handler) checkoutNext(c *gin.Context) {
	session := h.checkoutSession(c)
	if session == nil {
		return
	}

	step, errs := session.Next()
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"step":         step,
			"field_errors": errs,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"step": step})
}

func (h *Handler) checkoutPrev(c *gin.Context) {
	session := h.checkoutSession(c)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"step": session.Prev()})
}

func (h *Handler) checkoutSubmit(c *gin.Context) {
	session := h.checkoutSession(c)
	if session == nil {
		return
	}

	result, err := session.Submit(c.Request.Context())
	switch {
	case err == checkout.ErrSubmissionInFlight, err == checkout.ErrAlreadySubmitted:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err == checkout.ErrNotAtConfirmation, err == checkout.ErrEmptyCart:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": session.ErrorMessage()})
	default:
		c.JSON(http.StatusCreated, gin.H{
			"order_id":          result.OrderID,
			"redirect_after_ms": result.RedirectAfter.Milliseconds(),
		})
	}
}

func (h *Handler) abandonCheckout(c *gin.Context) {
	h.checkouts.Drop(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// createOrder is the backend side of order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req checkout.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	result, err := h.orderService.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    result.OrderID,
		"order": gin.H{"id": result.OrderID},
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, items, addr, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":            order,
		"items":            items,
		"shipping_address": addr,
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	var (
		products []models.Product
		err      error
	)
	if category := c.Query("category"); category != "" {
		products, err = h.orderService.Store().GetProductsByCategory(c.Request.Context(), category)
	} else {
		products, err = h.orderService.Store().GetProducts(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.orderService.Store().GetProductByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
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
