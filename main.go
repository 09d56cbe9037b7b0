package main

import (
	"fmt"
	"net/http"
	"time"

	_uuid "github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"dialogos/controller"
	"dialogos/model"
	"dialogos/platform"
	"dialogos/service"
)

// CORSMiddleware ...
// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Authorization, Accept, Accept-Encoding")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
		} else {
			c.Next()
		}
	}
}

// RequestIDMiddleware ...
// Generate a unique ID and attach it to each request for future reference or use
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uuid := _uuid.New()
		c.Writer.Header().Set("X-Request-Id", uuid.String())
		c.Set("requestId", uuid.String())
		c.Next()
	}
}

func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		userAgent := c.Request.UserAgent()
		requestId := c.GetString("requestId")

		logrus.Infof(
			" [%s] %d | %v | %s | %s | %s | %s ",
			requestId,
			status,
			latency,
			clientIP,
			method,
			path,
			userAgent,
		)
	}
}

// IdentityMiddleware ...
// Resolves the bearer credential when one is present. Guests pass through
// with no identity attached.
func IdentityMiddleware(ids *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity := ids.Resolve(c.Request); identity != nil {
			c.Set("identity", identity)
		}
		c.Next()
	}
}

// RequireAuthMiddleware ...
// Rejects requests that did not resolve to an identity.
func RequireAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get("identity"); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required: Invalid or missing token."})
			return
		}
		c.Next()
	}
}

func main() {
	fmt.Println("Server started...")

	//Load the .env file
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("failed to load the env file")
	}

	platform.InitFile("./log", "gin")
	config := platform.LoadConfig()

	r := gin.Default()
	r.Use(CORSMiddleware(config.AllowedOrigin))
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware())

	//init database
	platform.InitDB(config)
	model.InstallDB()

	platform.InitLLMClient(config)

	personas, err := service.LoadPersonas(config.PersonaDir, config.DefaultPersona)
	if err != nil {
		platform.Logger.Fatalf("Persona configuration error: %s", err)
	}

	identityService := service.NewIdentityService(config.AccessSecret)
	userService := &service.UserService{}
	dialogueService := service.NewDialogueService(
		userService,
		personas,
		service.NewLLMCompleter(config),
		config,
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(IdentityMiddleware(identityService))
	{
		dialogue := controller.DialogueController{Service: dialogueService}
		api.POST("/dialogue", dialogue.Exchange)

		persona := controller.PersonaController{Registry: personas}
		api.GET("/personas", persona.List)

		history := controller.HistoryController{Users: userService, PageSize: config.MaxHistoryItems}
		authed := api.Group("/history", RequireAuthMiddleware())
		authed.GET("", history.List)
		authed.GET("/:id", history.Detail)
		authed.DELETE("/:id", history.Delete)
	}

	c := cron.New()
	report := &service.ReportService{}
	c.AddFunc("0 0 * * *", report.UsageReport)
	c.Start()

	r.Run(":" + config.Port)
}
