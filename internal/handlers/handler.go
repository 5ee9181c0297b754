package handlers

import (
	"splitflap/internal/logger"
	"splitflap/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Board status stream (HTTP upgrade) — same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerCircuitRoutes(api)
		h.registerBoardRoutes(api)
		h.registerEventRoutes(api)
	}
}

func (h *Handler) registerCircuitRoutes(api *gin.RouterGroup) {
	circuits := api.Group("/circuits")
	{
		circuits.GET("", h.getCircuits)
		circuits.GET("/:id", h.getCircuit)
		circuits.POST("/:id/on", h.circuitOn)
		circuits.POST("/:id/off", h.circuitOff)
		circuits.POST("/:id/reset", h.circuitReset)
	}
}

func (h *Handler) registerBoardRoutes(api *gin.RouterGroup) {
	board := api.Group("/board")
	{
		board.GET("", h.getBoard)
		board.POST("/refresh", h.refreshBoard)
	}
}

func (h *Handler) registerEventRoutes(api *gin.RouterGroup) {
	events := api.Group("/events")
	{
		events.GET("", h.getEvents)
	}
}
