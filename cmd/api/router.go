package api

import (
	"net/http"
	"time"

	authdelivery "miinplanner-backend/internal/auth/delivery"
	flowsdelivery "miinplanner-backend/internal/flows/delivery"
	reminderdelivery "miinplanner-backend/internal/reminder/delivery"
	socialdelivery "miinplanner-backend/internal/social/delivery"
	taskdelivery "miinplanner-backend/internal/task/delivery"
	spacedelivery "miinplanner-backend/internal/taskspace/delivery"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router builds the gin engine with every route of the API
func (s *Server) Router() *gin.Engine {
	if s.cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(requestLogger(s.log), gin.Recovery(), cors())
	SetupRoutes(r, s)
	return r
}

func SetupRoutes(r *gin.Engine, s *Server) {
	// a new session reloads the user's cache, picking up out-of-band
	// changes such as CLI imports
	authHandler := authdelivery.NewAuthHandler(s.profiles, s.issuer).OnSession(s.registry.Forget)
	// Unverified users may still see who they are and bootstrap a profile.
	requireAuth := authdelivery.AuthMiddleware(s.verifier, "/api/auth/me", "/api/auth/session")

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := api.Group("/auth")
		{
			auth.GET("/me", requireAuth, authHandler.Me)
			auth.POST("/session", requireAuth, authHandler.Session)
			if s.issuer != nil {
				auth.POST("/local/token", authHandler.LocalToken)
			}
		}

		protected := api.Group("", requireAuth)
		{
			fcm := protected.Group("/fcm")
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.DeleteFCMToken)

			taskdelivery.NewTaskHandler(s.registry).RegisterRoutes(protected)
			spacedelivery.NewSpaceHandler(s.registry).RegisterRoutes(protected)
			socialdelivery.NewPostHandler(s.registry).RegisterRoutes(protected)
			flowsdelivery.NewAIHandler(s.registry, s.flows, s.profiles).RegisterRoutes(protected)
			reminderdelivery.NewReminderHandler(s.stores.Reminders).RegisterRoutes(protected)

			settings := protected.Group("/settings")
			settings.GET("/ai", s.settings.Get)
			settings.PUT("/ai", s.settings.Update)
			settings.POST("/ai/test", s.settings.TestConnection)
		}
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if session, ok := authdelivery.SessionFrom(c); ok {
			fields = append(fields, zap.String("uid", session.UID))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request", append(fields, zap.String("error", c.Errors.String()))...)
		case status >= http.StatusBadRequest:
			log.Info("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
