package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/playmaker-pro/backend-sub001/internal/api/handlers"
	"github.com/playmaker-pro/backend-sub001/internal/api/middleware"
	"github.com/playmaker-pro/backend-sub001/internal/config"
	"github.com/playmaker-pro/backend-sub001/internal/services"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, mailer services.IMailDispatcher) *gin.Engine {
	// Initialize services needed by API handlers.
	profileService := services.NewProfileService(db)
	notificationService := services.NewNotificationService(db, cfg)
	logService := services.NewLogService(db, profileService, mailer)
	overlayProvider := services.NewPremiumOverlayProvider(db)
	quotaService := services.NewQuotaService(db, cfg, overlayProvider, notificationService)
	anonymityService := services.NewAnonymityService(profileService)
	inquiryService := services.NewInquiryService(db, cfg, quotaService, anonymityService, logService, notificationService)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	inquiryHandler := handlers.NewRestInquiryHandler(inquiryService, quotaService, anonymityService, profileService)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/profile/:uuid/inquiry", inquiryHandler.SendInquiry)

			authRequired.POST("/inquiry/:id/read", inquiryHandler.MarkRead)
			authRequired.POST("/inquiry/:id/accept", inquiryHandler.AcceptInquiry)
			authRequired.POST("/inquiry/:id/reject", inquiryHandler.RejectInquiry)

			authRequired.GET("/inquiries/sent", inquiryHandler.ListSent)
			authRequired.GET("/inquiries/received", inquiryHandler.ListReceived)
			authRequired.GET("/inquiries/contacts", inquiryHandler.ListContacts)
			authRequired.GET("/inquiries/quota", inquiryHandler.GetQuota)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine used by
// end-to-end tests: remote shutdown plus retrieval of mock emails captured in
// Redis by the RedisSender.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // Expect ["event_type", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [eventType, email]"})
				return
			}
			eventType := args[0]
			emailAddr := args[1]
			redisKey := fmt.Sprintf("mockemail:%s:%s", emailAddr, eventType)

			var emailJsonData string
			var getErr error
			found := false
			ctx := c.Request.Context()
			for i := 0; i < 10; i++ {
				emailJsonData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJsonData), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
