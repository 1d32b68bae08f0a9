package openapi

// Error is the body of every non-2xx response.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// HealthStatus is the overall probe result.
type HealthStatus string

const (
	HealthStatusOk       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health is the body of the probe endpoints.
type Health struct {
	Status HealthStatus      `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// CredentialPair is one key/value to store.
type CredentialPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CreateIntegrationRequest is the body of POST /users/me/integrations.
type CreateIntegrationRequest struct {
	PlatformId  int64            `json:"platform_id"`
	IsActive    *bool            `json:"is_active,omitempty"`
	Credentials []CredentialPair `json:"credentials,omitempty"`
}

// UpdateIntegrationRequest is the body of PATCH /users/me/integrations/{integration_id}.
type UpdateIntegrationRequest struct {
	IsActive bool `json:"is_active"`
}

// AddCredentialRequest is the body of POST /users/me/credentials.
type AddCredentialRequest struct {
	PlatformId int64  `json:"platform_id"`
	Key        string `json:"key"`
	Value      string `json:"value"`
}

// AdminAddCredentialRequest is the body of POST /admin/credentials.
type AdminAddCredentialRequest struct {
	UserId     int64  `json:"user_id"`
	PlatformId int64  `json:"platform_id"`
	Key        string `json:"key"`
	Value      string `json:"value"`
}

// CreatePlatformRequest is the body of POST /admin/platforms.
type CreatePlatformRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// AssignUserRequest is the body of POST /admin/integrations.
type AssignUserRequest struct {
	UserId     int64 `json:"user_id"`
	PlatformId int64 `json:"platform_id"`
}

// ListMyPlatformsParams defines parameters for ListMyPlatforms.
type ListMyPlatformsParams struct {
	Name        *string   `form:"name,omitempty" json:"name,omitempty"`
	Description *string   `form:"description,omitempty" json:"description,omitempty"`
	OrderBy     *[]string `form:"order_by,omitempty" json:"order_by,omitempty"`
}

// ListUserPlatformsParams defines parameters for ListUserPlatforms.
type ListUserPlatformsParams = ListMyPlatformsParams

// ListPlatformsParams defines parameters for ListPlatforms.
type ListPlatformsParams = ListMyPlatformsParams

// ListMyIntegrationsParams defines parameters for ListMyIntegrations.
type ListMyIntegrationsParams struct {
	IsActive   *bool     `form:"is_active,omitempty" json:"is_active,omitempty"`
	PlatformId *int64    `form:"platform_id,omitempty" json:"platform_id,omitempty"`
	OrderBy    *[]string `form:"order_by,omitempty" json:"order_by,omitempty"`
}

// AdminListUsersParams defines parameters for AdminListUsers.
type AdminListUsersParams struct {
	Username *string   `form:"username,omitempty" json:"username,omitempty"`
	IsAdmin  *bool     `form:"is_admin,omitempty" json:"is_admin,omitempty"`
	OrderBy  *[]string `form:"order_by,omitempty" json:"order_by,omitempty"`
}

// AdminListCredentialsParams defines parameters for AdminListCredentials.
type AdminListCredentialsParams struct {
	Key     *string   `form:"key,omitempty" json:"key,omitempty"`
	OrderBy *[]string `form:"order_by,omitempty" json:"order_by,omitempty"`
}
