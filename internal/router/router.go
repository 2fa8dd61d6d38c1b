package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/psds-microservice/helpdesk-service/api"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/middleware"
	"github.com/psds-microservice/helpy/paths"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Options: то, что роутер получает от application.
type Options struct {
	Tickets       *handler.TicketHandler
	Telegram      *handler.TelegramHandler
	Log           *zap.Logger
	Ping          func(ctx context.Context) error
	JWTSecret     string
	WebhookSecret string
}

func New(opts Options) (http.Handler, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := handler.RegisterValidators(v); err != nil {
			return nil, err
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Log != nil {
		r.Use(middleware.RequestLogger(opts.Log))
	}
	r.GET(paths.PathHealth, handler.Health)
	r.GET(paths.PathReady, handler.Ready(opts.Ping))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(paths.PathSwagger+"/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1")

	if opts.Tickets != nil {
		tickets := v1.Group("/tickets", middleware.Identity(opts.JWTSecret))
		{
			tickets.POST("", opts.Tickets.Create)
			tickets.GET("", opts.Tickets.List)
			tickets.GET("/stats", opts.Tickets.Stats)
			tickets.GET("/:id", opts.Tickets.Get)
			tickets.PATCH("/:id", opts.Tickets.Update)
			tickets.DELETE("/:id", opts.Tickets.Delete)
			tickets.GET("/:id/detail", opts.Tickets.Detail)
			tickets.PUT("/:id/status", opts.Tickets.SetStatus)
			tickets.PUT("/:id/priority", opts.Tickets.SetPriority)
			tickets.PUT("/:id/assignee", opts.Tickets.Assign)
			tickets.GET("/:id/comments", opts.Tickets.ListComments)
			tickets.POST("/:id/comments", opts.Tickets.AddComment)
		}
	}

	if opts.Telegram != nil {
		webhookCORS := middleware.CORS()
		// без JWT агент приходит с X-Caller-ID
		sendCORS := middleware.CORS(middleware.HeaderCallerID)
		tg := v1.Group("/telegram")
		{
			tg.OPTIONS("/webhook", webhookCORS)
			tg.POST("/webhook", webhookCORS, middleware.WebhookSecret(opts.WebhookSecret), opts.Telegram.Webhook)
			tg.OPTIONS("/send", sendCORS)
			tg.POST("/send", sendCORS, middleware.Identity(opts.JWTSecret), opts.Telegram.Send)
		}
	}

	return r, nil
}
