package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/confide/internal/access"
	"github.com/lalith-99/confide/internal/match"
	"github.com/lalith-99/confide/internal/middleware"
	"github.com/lalith-99/confide/internal/observ"
	"github.com/lalith-99/confide/internal/payment"
	"github.com/lalith-99/confide/internal/realtime"
	"github.com/lalith-99/confide/internal/repository"
	"go.uber.org/zap"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	Logger        *zap.Logger
	Metrics       *observ.Metrics
	JWTSecret     string
	AllowedOrigin string

	// Health reports whether the store is reachable.
	Health func(ctx context.Context) error

	Users         repository.UserRepository
	Matcher       *match.Matcher
	Relationships *access.Relationships
	Gate          *access.Gate
	Threads       *access.Threads
	Payments      *payment.Service
	Hub           *realtime.Hub
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger), middleware.Metrics(d.Metrics))

	// Public: load balancers, scrapers and the payment provider.
	r.GET("/v1/health", healthHandler(d.Health))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	payments := NewPaymentHandler(d.Payments, d.Logger)
	r.POST("/v1/payments/midtrans/notification", payments.Notification)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(d.JWTSecret))

	users := NewUserHandler(d.Users, d.Logger)
	v1.GET("/users/me", users.GetMe)
	v1.GET("/users/:id", users.Get)

	matches := NewMatchHandler(d.Matcher, d.Logger)
	v1.GET("/matches", matches.List)

	friends := NewFriendHandler(d.Relationships, d.Logger)
	v1.POST("/friends/:id", friends.Propose)
	v1.POST("/friends/:id/accept", friends.Accept)

	dm := NewDMHandler(d.Gate, d.Threads, d.Hub, realtime.NewUpgrader(d.AllowedOrigin), d.Logger)
	v1.GET("/dm/access/:id", dm.Access)
	v1.GET("/dm/threads", dm.ListThreads)
	v1.POST("/dm/threads", dm.OpenThread)
	v1.GET("/dm/threads/:id/messages", dm.ListMessages)
	v1.POST("/dm/threads/:id/messages", dm.SendMessage)
	v1.GET("/dm/threads/:id/ws", dm.Stream)

	v1.POST("/payments/unlock", payments.Unlock)

	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
