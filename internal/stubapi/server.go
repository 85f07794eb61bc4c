package stubapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"shophub/internal/models"
	"shophub/internal/push"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// stub backend, development only
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server is the development stub of the back-office API: REST endpoints the
// console talks to, plus the websocket push channel. Integration tests mount
// Engine() on an httptest server.
type Server struct {
	store       *Store
	hub         *Hub
	broadcaster *Broadcaster
	engine      *gin.Engine
	jwtSecret   []byte
	jwtExpiry   time.Duration
	log         *slog.Logger
}

// NewServer assembles routes, middleware and the push hub.
func NewServer(store *Store, broadcaster *Broadcaster, hub *Hub, jwtSecret string, jwtExpiry time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:       store,
		hub:         hub,
		broadcaster: broadcaster,
		jwtSecret:   []byte(jwtSecret),
		jwtExpiry:   jwtExpiry,
		log:         logger,
	}

	// read acknowledgements arriving over the channel persist the same way
	// the REST endpoints do
	hub.onRead = func(id string) { store.MarkRead(id) }
	hub.onAllRead = func() { store.MarkAllRead() }

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")
	api.POST("/auth/login", s.handleLogin)

	authed := api.Group("")
	authed.Use(s.authMiddleware())
	{
		authed.GET("/auth/profile", s.handleProfile)

		authed.GET("/notifications", s.handleNotifications)
		authed.POST("/notifications", s.handleCreateNotification)
		authed.PUT("/notifications/:id/read", s.handleMarkRead)
		authed.PUT("/notifications/read-all", s.handleMarkAllRead)

		authed.GET("/products", listHandler(s.store.Products))
		authed.GET("/categories", listHandler(s.store.Categories))
		authed.GET("/brands", listHandler(s.store.Brands))
		authed.GET("/orders", listHandler(s.store.Orders))
		authed.GET("/suppliers", listHandler(s.store.Suppliers))
		authed.GET("/branches", listHandler(s.store.Branches))
		authed.GET("/promotions", listHandler(s.store.Promotions))
		authed.GET("/customers", listHandler(s.store.Customers))
	}

	r.GET("/ws", s.handleWS)

	s.engine = r
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Info("stub backend listening", "addr", addr)
	return s.engine.Run(addr)
}

func (s *Server) issueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(s.jwtExpiry).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *Server) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := s.parseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		userID, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := s.store.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) handleProfile(c *gin.Context) {
	userID := c.GetString("userID")
	user, ok := s.store.UserByID(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) handleNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": s.store.Notifications()})
}

// handleCreateNotification injects a notification and pushes it to the admin
// room. Development helper for exercising the live feed.
func (s *Server) handleCreateNotification(c *gin.Context) {
	var req struct {
		Kind        string `json:"kind" binding:"required"`
		Message     string `json:"message" binding:"required"`
		SourceEvent string `json:"source_event"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind and message are required"})
		return
	}
	if req.SourceEvent == "" {
		req.SourceEvent = "created"
	}

	n := s.store.AddNotification(req.Kind, req.Message, req.SourceEvent)

	payload, err := json.Marshal(n)
	if err == nil {
		msg := push.NewMessage(push.TypeNotification, "admin", payload)
		if err := s.broadcaster.Publish(c.Request.Context(), "admin", msg); err != nil {
			s.log.Warn("push delivery failed", "error", err)
		}
	}

	c.JSON(http.StatusCreated, n)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	id := c.Param("id")
	if !s.store.MarkRead(id) {
		// unknown ids are still a no-op success: the endpoint is idempotent
		s.log.Debug("mark-read for unknown notification", "id", id)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(c *gin.Context) {
	s.store.MarkAllRead()
	c.Status(http.StatusNoContent)
}

// handleWS upgrades the connection and starts the session pumps. The bearer
// token is validated the same way as on REST routes.
func (s *Server) handleWS(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	claims, err := s.parseToken(parts[1])
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID, _ := claims["sub"].(string)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade to WebSocket"})
		return
	}

	sess := &session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
		hub:    s.hub,
	}

	go sess.readPump()
	go sess.writePump()
}

// listHandler adapts a snapshot getter into a paginated list endpoint.
func listHandler[T any](snapshot func() []T) gin.HandlerFunc {
	return func(c *gin.Context) {
		pageNum := intQuery(c, "page", 1)
		pageSize := intQuery(c, "page_size", 20)

		data, total, totalPages := page(snapshot(), pageNum, pageSize)
		c.JSON(http.StatusOK, gin.H{
			"data":        data,
			"page":        pageNum,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
		})
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 1 {
		return def
	}
	return n
}
