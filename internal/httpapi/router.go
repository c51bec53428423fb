package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the gin engine with the ordered middleware chain
// (CORS -> correlation-ID -> request logging -> auth) and every handler
// named in the specification.
func NewRouter(state *AppState) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(state.Cfg.CORS.UIOrigin, state.Cfg.CORS.CORSAllowAll))
	r.Use(correlationIDMiddleware)
	r.Use(requestLoggingMiddleware)
	r.Use(state.authMiddleware)

	r.GET("/healthz", state.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/login", state.handleLogin)
	r.POST("/auth/logout", state.handleLogout)

	r.GET("/models", state.handleModels)
	r.GET("/chats", state.handleChats)
	r.POST("/search", state.handleSearch)
	r.POST("/chat", state.handleChat)

	return r
}
