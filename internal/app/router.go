package app

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/api/middleware"
	"keyport.io/keyport/internal/api/openapi"
	"keyport.io/keyport/internal/config"
	apperrors "keyport.io/keyport/internal/pkg/errors"
	"keyport.io/keyport/internal/pkg/logger"
	"keyport.io/keyport/internal/pkg/metrics"
)

const apiBasePath = "/api/v1"

// Public routes that do NOT require JWT authentication.
var publicPrefixes = []string{
	"/api/v1/auth/",
	"/api/v1/health/",
}

// adminPrefixes are routes that also require an administrator.
var adminPrefixes = []string{
	"/api/v1/admin/",
}

// defaultDevOrigins are allowed when no origins are configured.
var defaultDevOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newRouter(cfg *config.Config, server openapi.ServerInterface, gate middleware.Gate) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())
	router.Use(cors.New(buildCORSConfig(cfg)))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openapi.SpecYAML())
	})
	ops := router.Group("/log", middleware.JWTAuth(gate), middleware.RequireAdmin(gate))
	ops.Any("/level", gin.WrapH(logger.LevelHandler()))

	// The validator buffers responses, so ErrorHandler must sit inside it.
	api := router.Group("",
		middleware.RequestTimeout(cfg.Server.RequestTimeout),
		middleware.Guard(gate, middleware.AccessRules{
			PublicPrefixes: publicPrefixes,
			AdminPrefixes:  adminPrefixes,
		}),
		middleware.MustOpenAPIValidator(apiBasePath),
		middleware.ErrorHandler(),
	)
	openapi.RegisterHandlersWithOptions(api, server, openapi.GinServerOptions{
		BaseURL: apiBasePath,
		ErrorHandler: func(c *gin.Context, err error, _ int) {
			_ = c.Error(apperrors.Wrap(err, apperrors.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		},
	})
	return router
}

// buildCORSConfig never combines a wildcard origin with credentials.
func buildCORSConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "WWW-Authenticate"},
		AllowCredentials: cfg.Server.AllowCredentials,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
		return corsCfg
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "" || origin == "*" {
			continue
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = slices.Clone(defaultDevOrigins)
	}
	corsCfg.AllowOrigins = origins
	return corsCfg
}
