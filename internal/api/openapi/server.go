package openapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /auth/register)
	Register(c *gin.Context)
	// (POST /auth/login)
	Login(c *gin.Context)
	// (POST /auth/refresh)
	RefreshToken(c *gin.Context)

	// (GET /users/me)
	GetCurrentUser(c *gin.Context)
	// (GET /users/me/platforms)
	ListMyPlatforms(c *gin.Context, params ListMyPlatformsParams)
	// (GET /users/me/integrations)
	ListMyIntegrations(c *gin.Context, params ListMyIntegrationsParams)
	// (POST /users/me/integrations)
	CreateMyIntegration(c *gin.Context)
	// (PATCH /users/me/integrations/{integration_id})
	UpdateMyIntegration(c *gin.Context, integrationId int64)
	// (POST /users/me/credentials)
	AddMyCredential(c *gin.Context)
	// (GET /users/{user_id}/platforms)
	ListUserPlatforms(c *gin.Context, userId int64, params ListUserPlatformsParams)

	// (GET /platforms)
	ListPlatforms(c *gin.Context, params ListPlatformsParams)
	// (GET /platforms/{platform_id})
	GetPlatform(c *gin.Context, platformId int64)

	// (GET /admin/users)
	AdminListUsers(c *gin.Context, params AdminListUsersParams)
	// (GET /admin/users/{user_id})
	AdminGetUser(c *gin.Context, userId int64)
	// (GET /admin/users/{user_id}/platforms/{platform_id}/credentials)
	AdminListCredentials(c *gin.Context, userId int64, platformId int64, params AdminListCredentialsParams)
	// (POST /admin/platforms)
	AdminCreatePlatform(c *gin.Context)
	// (POST /admin/integrations)
	AdminAssignUser(c *gin.Context)
	// (POST /admin/credentials)
	AdminAddCredential(c *gin.Context)

	// (GET /health/live)
	GetLiveness(c *gin.Context)
	// (GET /health/ready)
	GetReadiness(c *gin.Context)
}

// MiddlewareFunc runs before the bound handler.
type MiddlewareFunc func(c *gin.Context)

// ServerInterfaceWrapper binds path and query parameters, then calls the handler.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

func (siw *ServerInterfaceWrapper) runMiddlewares(c *gin.Context) bool {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return false
		}
	}
	return true
}

func (siw *ServerInterfaceWrapper) pathInt64(c *gin.Context, name string, dest *int64) bool {
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), dest,
		runtime.BindStyledParameterOptions{Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter %s: %w", name, err), http.StatusBadRequest)
		return false
	}
	return true
}

func (siw *ServerInterfaceWrapper) query(c *gin.Context, explode bool, name string, dest interface{}) bool {
	err := runtime.BindQueryParameter("form", explode, false, name, c.Request.URL.Query(), dest)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter %s: %w", name, err), http.StatusBadRequest)
		return false
	}
	return true
}

func (siw *ServerInterfaceWrapper) platformListParams(c *gin.Context) (ListMyPlatformsParams, bool) {
	var params ListMyPlatformsParams
	ok := siw.query(c, true, "name", &params.Name) &&
		siw.query(c, true, "description", &params.Description) &&
		siw.query(c, true, "order_by", &params.OrderBy)
	return params, ok
}

// Register operation middleware
func (siw *ServerInterfaceWrapper) Register(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.Register(c)
	}
}

// Login operation middleware
func (siw *ServerInterfaceWrapper) Login(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.Login(c)
	}
}

// RefreshToken operation middleware
func (siw *ServerInterfaceWrapper) RefreshToken(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.RefreshToken(c)
	}
}

// GetCurrentUser operation middleware
func (siw *ServerInterfaceWrapper) GetCurrentUser(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.GetCurrentUser(c)
	}
}

// ListMyPlatforms operation middleware
func (siw *ServerInterfaceWrapper) ListMyPlatforms(c *gin.Context) {
	params, ok := siw.platformListParams(c)
	if !ok {
		return
	}
	if siw.runMiddlewares(c) {
		siw.Handler.ListMyPlatforms(c, params)
	}
}

// ListMyIntegrations operation middleware
func (siw *ServerInterfaceWrapper) ListMyIntegrations(c *gin.Context) {
	var params ListMyIntegrationsParams
	if !siw.query(c, true, "is_active", &params.IsActive) ||
		!siw.query(c, true, "platform_id", &params.PlatformId) ||
		!siw.query(c, true, "order_by", &params.OrderBy) {
		return
	}
	if siw.runMiddlewares(c) {
		siw.Handler.ListMyIntegrations(c, params)
	}
}

// CreateMyIntegration operation middleware
func (siw *ServerInterfaceWrapper) CreateMyIntegration(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.CreateMyIntegration(c)
	}
}

// UpdateMyIntegration operation middleware
func (siw *ServerInterfaceWrapper) UpdateMyIntegration(c *gin.Context) {
	var integrationId int64
	if !siw.pathInt64(c, "integration_id", &integrationId) {
		return
	}
	if siw.runMiddlewares(c) {
		siw.Handler.UpdateMyIntegration(c, integrationId)
	}
}

// AddMyCredential operation middleware
func (siw *ServerInterfaceWrapper) AddMyCredential(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.AddMyCredential(c)
	}
}

// ListUserPlatforms operation middleware
func (siw *ServerInterfaceWrapper) ListUserPlatforms(c *gin.Context) {
	var userId int64
	if !siw.pathInt64(c, "user_id", &userId) {
		return
	}
	params, ok := siw.platformListParams(c)
	if !ok {
		return
	}
	if siw.runMiddlewares(c) {
		siw.Handler.ListUserPlatforms(c, userId, params)
	}
}

// ListPlatforms operation middleware
func (siw *ServerInterfaceWrapper) ListPlatforms(c *gin.Context) {
	params, ok := siw.platformListParams(c)
	if !ok {
		return
	}
	if siw.runMiddlewares(c) {
		siw.Handler.ListPlatforms(c, params)
	}
}

// GetPlatform operation middleware
func (siw *ServerInterfaceWrapper) GetPlatform(c *gin.Context) {
	var platformId int64
	if !siw.pathInt64(c, "platform_id", &platformId) {
		return
	}
	if siw.runMiddlewares(c) {
		siw.Handler.GetPlatform(c, platformId)
	}
}

// AdminListUsers operation middleware
func (siw *ServerInterfaceWrapper) AdminListUsers(c *gin.Context) {
	var params AdminListUsersParams
	if !siw.query(c, true, "username", &params.Username) ||
		!siw.query(c, true, "is_admin", &params.IsAdmin) ||
		!siw.query(c, true, "order_by", &params.OrderBy) {
		return
	}
	if siw.runMiddlewares(c) {
		siw.Handler.AdminListUsers(c, params)
	}
}

// AdminGetUser operation middleware
func (siw *ServerInterfaceWrapper) AdminGetUser(c *gin.Context) {
	var userId int64
	if !siw.pathInt64(c, "user_id", &userId) {
		return
	}
	if siw.runMiddlewares(c) {
		siw.Handler.AdminGetUser(c, userId)
	}
}

// AdminListCredentials operation middleware
func (siw *ServerInterfaceWrapper) AdminListCredentials(c *gin.Context) {
	var userId, platformId int64
	if !siw.pathInt64(c, "user_id", &userId) || !siw.pathInt64(c, "platform_id", &platformId) {
		return
	}
	var params AdminListCredentialsParams
	if !siw.query(c, true, "key", &params.Key) || !siw.query(c, true, "order_by", &params.OrderBy) {
		return
	}
	if siw.runMiddlewares(c) {
		siw.Handler.AdminListCredentials(c, userId, platformId, params)
	}
}

// AdminCreatePlatform operation middleware
func (siw *ServerInterfaceWrapper) AdminCreatePlatform(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.AdminCreatePlatform(c)
	}
}

// AdminAssignUser operation middleware
func (siw *ServerInterfaceWrapper) AdminAssignUser(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.AdminAssignUser(c)
	}
}

// AdminAddCredential operation middleware
func (siw *ServerInterfaceWrapper) AdminAddCredential(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.AdminAddCredential(c)
	}
}

// GetLiveness operation middleware
func (siw *ServerInterfaceWrapper) GetLiveness(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.GetLiveness(c)
	}
}

// GetReadiness operation middleware
func (siw *ServerInterfaceWrapper) GetReadiness(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.GetReadiness(c)
	}
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options.
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, Error{Code: "INVALID_REQUEST", Message: err.Error()})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	base := options.BaseURL
	router.POST(base+"/auth/register", wrapper.Register)
	router.POST(base+"/auth/login", wrapper.Login)
	router.POST(base+"/auth/refresh", wrapper.RefreshToken)

	router.GET(base+"/users/me", wrapper.GetCurrentUser)
	router.GET(base+"/users/me/platforms", wrapper.ListMyPlatforms)
	router.GET(base+"/users/me/integrations", wrapper.ListMyIntegrations)
	router.POST(base+"/users/me/integrations", wrapper.CreateMyIntegration)
	router.PATCH(base+"/users/me/integrations/:integration_id", wrapper.UpdateMyIntegration)
	router.POST(base+"/users/me/credentials", wrapper.AddMyCredential)
	router.GET(base+"/users/:user_id/platforms", wrapper.ListUserPlatforms)

	router.GET(base+"/platforms", wrapper.ListPlatforms)
	router.GET(base+"/platforms/:platform_id", wrapper.GetPlatform)

	router.GET(base+"/admin/users", wrapper.AdminListUsers)
	router.GET(base+"/admin/users/:user_id", wrapper.AdminGetUser)
	router.GET(base+"/admin/users/:user_id/platforms/:platform_id/credentials", wrapper.AdminListCredentials)
	router.POST(base+"/admin/platforms", wrapper.AdminCreatePlatform)
	router.POST(base+"/admin/integrations", wrapper.AdminAssignUser)
	router.POST(base+"/admin/credentials", wrapper.AdminAddCredential)

	router.GET(base+"/health/live", wrapper.GetLiveness)
	router.GET(base+"/health/ready", wrapper.GetReadiness)
}
