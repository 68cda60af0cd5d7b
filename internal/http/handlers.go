package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/service"
)

// Services bundles the business layer the HTTP surface delegates to.
type Services struct {
	Auth     *service.AuthService
	Products *service.ProductService
	Orders   *service.OrderService
	Payments *service.PaymentService
}

type Server struct {
	engine   *gin.Engine
	auth     *service.AuthService
	products *service.ProductService
	orders   *service.OrderService
	payments *service.PaymentService
	log      *zap.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// NewServer builds the gin engine. A nil gatherer disables /metrics.
func NewServer(svc Services, log *zap.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	s := &Server{
		engine:   r,
		auth:     svc.Auth,
		products: svc.Products,
		orders:   svc.Orders,
		payments: svc.Payments,
		log:      log,
		metrics:  m,
		gatherer: gatherer,
	}
	r.Use(requestID(), s.accessLog(), s.recovery())
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if s.gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}
	s.engine.GET("/health", s.health)
	s.engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, codeNotFound, "route not found", nil)
	})

	authGroup := s.engine.Group("/auth")
	{
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
	}

	products := s.engine.Group("/products")
	{
		products.GET("", s.listProducts)
		products.GET(":id", s.getProduct)
		products.POST("", s.requireAuth(), s.createProduct)
		products.PATCH(":id", s.requireAuth(), s.updateProduct)
	}

	orders := s.engine.Group("/orders", s.requireAuth())
	{
		orders.POST("", s.createOrder)
		orders.GET(":id", s.getOrder)
		orders.POST(":id/cancel", s.cancelOrder)
	}

	payments := s.engine.Group("/payments", s.requireAuth())
	{
		payments.POST("", s.createPayment)
		payments.GET(":id", s.getPayment)
	}
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Auth handlers
type registerReq struct {
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     domain.Role `json:"role" binding:"omitempty,oneof=customer admin"`
}

// @Summary Register user
// @Tags auth
// @Accept json
// @Produce json
// @Param input body registerReq true "Credentials"
// @Success 201 {object} domain.User
// @Failure 400 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Router /auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}
	u, err := s.auth.Register(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResp struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginReq true "Credentials"
// @Success 200 {object} loginResp
// @Failure 401 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Router /auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}
	token, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResp{AccessToken: token, TokenType: "Bearer", ExpiresIn: s.auth.TokenTTLSeconds()})
}

// Product handlers

// @Summary List active products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.products.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} errorResponse
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type createProductReq struct {
	Name     string          `json:"name" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Stock    int64           `json:"stock" binding:"gte=0"`
	IsActive *bool           `json:"isActive"`
}

// @Summary Create product
// @Tags products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body createProductReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 401 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p, err := s.products.Create(c.Request.Context(), principal(c), domain.Product{
		Name:     req.Name,
		Price:    req.Price,
		Currency: req.Currency,
		Stock:    req.Stock,
		IsActive: active,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type updateProductReq struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Stock    *int64           `json:"stock" binding:"omitempty,gte=0"`
	IsActive *bool            `json:"isActive"`
}

// @Summary Update product
// @Tags products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body updateProductReq true "Fields to change"
// @Success 200 {object} domain.Product
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Router /products/{id} [patch]
func (s *Server) updateProduct(c *gin.Context) {
	var req updateProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}
	p, err := s.products.Update(c.Request.Context(), principal(c), c.Param("id"), service.ProductPatch{
		Name:     req.Name,
		Price:    req.Price,
		Stock:    req.Stock,
		IsActive: req.IsActive,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Order handlers
type createOrderReq struct {
	Items []domain.OrderItem `json:"items" binding:"required"`
}

// @Summary Create order
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}
	o, err := s.orders.CreateOrder(c.Request.Context(), principal(c), req.Items)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Get order by id
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.GetOrder(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Cancel order
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /orders/{id}/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	o, err := s.orders.CancelOrder(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Payment handlers
type createPaymentReq struct {
	OrderID string               `json:"orderId" binding:"required"`
	Method  domain.PaymentMethod `json:"method" binding:"required,oneof=CARD TRANSFER"`
}

// @Summary Pay for an order
// @Tags payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client idempotency key"
// @Param input body createPaymentReq true "Payment"
// @Success 201 {object} domain.Payment
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Router /payments [post]
func (s *Server) createPayment(c *gin.Context) {
	var req createPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		s.log.Info("payment requested",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("order_id", req.OrderID),
			zap.String("idempotency_key", key))
	}
	p, err := s.payments.CreatePayment(c.Request.Context(), principal(c), req.OrderID, req.Method)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get payment by id
// @Tags payments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} domain.Payment
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /payments/{id} [get]
func (s *Server) getPayment(c *gin.Context) {
	p, err := s.payments.GetPayment(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
