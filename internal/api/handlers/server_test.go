package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"keyport.io/keyport/internal/api/middleware"
	"keyport.io/keyport/internal/api/openapi"
	"keyport.io/keyport/internal/pkg/logger"
	"keyport.io/keyport/internal/pkg/secretbox"
	"keyport.io/keyport/internal/repository"
	"keyport.io/keyport/internal/service"
	"keyport.io/keyport/internal/testutil"
	"keyport.io/keyport/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json", logger.ComponentServer)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testAPI struct {
	t      *testing.T
	store  *testutil.MemStore
	hasher *service.PasswordHasher
	db     *stubPinger
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := testutil.NewMemStore()
	hasher := service.NewPasswordHasher(bcrypt.MinCost, nil)
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  []byte("access-signing-key-1234567890123456789012"),
		RefreshSecret: []byte("refresh-signing-key-123456789012345678901"),
		Issuer:        "keyport-test",
	})
	require.NoError(t, err)
	cipher, err := secretbox.NewAESGCM("handler-test-encryption-key-0123456789")
	require.NoError(t, err)
	vault := service.NewCredentialVault(cipher)

	auth := service.NewAuthService(store, hasher, tokens, nil)
	db := &stubPinger{}
	srv := NewServer(ServerDeps{
		Auth:         auth,
		Catalog:      service.NewCatalogService(store, vault, nil),
		Integrations: usecase.NewIntegrationUseCase(store, vault, nil),
		DB:           db,
	})

	router := gin.New()
	router.Use(middleware.Guard(auth, middleware.AccessRules{
		PublicPrefixes: []string{"/api/v1/auth/", "/api/v1/health/"},
		AdminPrefixes:  []string{"/api/v1/admin/"},
	}))
	router.Use(middleware.MustOpenAPIValidator("/api/v1"))
	router.Use(middleware.ErrorHandler())
	openapi.RegisterHandlersWithOptions(router, srv, openapi.GinServerOptions{BaseURL: "/api/v1"})

	return &testAPI{t: t, store: store, hasher: hasher, db: db, router: router}
}

// seedUser stores a user directly so admins can exist without registration.
func (a *testAPI) seedUser(username, password string, admin bool) int64 {
	a.t.Helper()
	hash, err := a.hasher.Hash(context.Background(), password)
	require.NoError(a.t, err)
	u, err := a.store.CreateUser(context.Background(), repository.CreateUserParams{
		Username: username, PasswordHash: hash, IsAdmin: admin,
	})
	require.NoError(a.t, err)
	return u.ID
}

func (a *testAPI) seedPlatform(name string) int64 {
	a.t.Helper()
	p, err := a.store.CreatePlatform(context.Background(), repository.CreatePlatformParams{Name: name})
	require.NoError(a.t, err)
	return p.ID
}

func (a *testAPI) login(username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}, "grant_type": {"password"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) token(username, password string) string {
	a.t.Helper()
	w := a.login(username, password)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var pair service.TokenPair
	mustDecodeJSON(a.t, w.Body.Bytes(), &pair)
	return pair.AccessToken
}

func (a *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func mustDecodeJSON(t *testing.T, data []byte, dest any) {
	t.Helper()
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body openapi.Error
	mustDecodeJSON(t, w.Body.Bytes(), &body)
	return body.Code
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/auth/register", "", `{"username":"alice","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var registered struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		IsAdmin  bool   `json:"is_admin"`
	}
	mustDecodeJSON(t, w.Body.Bytes(), &registered)
	assert.Equal(t, "alice", registered.Username)
	assert.False(t, registered.IsAdmin)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(http.MethodPost, "/api/v1/auth/register", "", `{"username":"alice","password":"other"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.login("alice", "s3cret")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pair service.TokenPair
	mustDecodeJSON(t, w.Body.Bytes(), &pair)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	w = api.do(http.MethodGet, "/api/v1/users/me", pair.AccessToken, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	// A refresh token is not an access token.
	w = api.do(http.MethodGet, "/api/v1/users/me", pair.RefreshToken, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/api/v1/auth/refresh", "", `{"refresh_token":"`+pair.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refreshed service.AccessTokenResult
	mustDecodeJSON(t, w.Body.Bytes(), &refreshed)

	w = api.do(http.MethodGet, "/api/v1/users/me", refreshed.AccessToken, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/api/v1/auth/refresh", "", `{"refresh_token":"`+pair.AccessToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("alice", "right", false)

	wrong := api.login("alice", "wrong")
	unknown := api.login("mallory", "whatever")

	for _, w := range []*httptest.ResponseRecorder{wrong, unknown} {
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
	}
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestUnauthenticatedRequests(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/v1/users/me", "/api/v1/platforms", "/api/v1/admin/users"} {
		w := api.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := api.do(http.MethodGet, "/api/v1/platforms", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminCatalog(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("root", "rootpw", true)
	api.seedUser("alice", "alicepw", false)
	adminToken := api.token("root", "rootpw")
	userToken := api.token("alice", "alicepw")

	w := api.do(http.MethodPost, "/api/v1/admin/platforms", userToken, `{"name":"github"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ADMIN_REQUIRED", errorCode(t, w))

	w = api.do(http.MethodPost, "/api/v1/admin/platforms", adminToken, `{"name":"github","description":"code hosting"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	mustDecodeJSON(t, w.Body.Bytes(), &created)
	assert.Equal(t, "github", created.Name)

	w = api.do(http.MethodPost, "/api/v1/admin/platforms", adminToken, `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/v1/platforms?name=GIT", userToken, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"github"`)

	w = api.do(http.MethodGet, "/api/v1/platforms/999", userToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PLATFORM_NOT_FOUND", errorCode(t, w))

	w = api.do(http.MethodGet, "/api/v1/admin/users?order_by=-username", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var users []struct {
		Username string `json:"username"`
	}
	mustDecodeJSON(t, w.Body.Bytes(), &users)
	require.Len(t, users, 2)
	assert.Equal(t, "root", users[0].Username)

	w = api.do(http.MethodGet, "/api/v1/admin/users?order_by=password_hash", adminToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ORDER_BY", errorCode(t, w))

	w = api.do(http.MethodGet, "/api/v1/admin/users/999", adminToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntegrationWorkflow(t *testing.T) {
	api := newTestAPI(t)
	aliceID := api.seedUser("alice", "alicepw", false)
	api.seedUser("root", "rootpw", true)
	platformID := api.seedPlatform("github")
	token := api.token("alice", "alicepw")
	adminToken := api.token("root", "rootpw")

	body := `{"platform_id":` + itoa(platformID) + `,"credentials":[{"key":"token","value":"ghp_1"}]}`
	w := api.do(http.MethodPost, "/api/v1/users/me/integrations", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first struct {
		ID          int64 `json:"id"`
		IsActive    bool  `json:"is_active"`
		Created     bool  `json:"created"`
		Credentials []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"credentials"`
	}
	mustDecodeJSON(t, w.Body.Bytes(), &first)
	assert.True(t, first.Created)
	assert.True(t, first.IsActive)
	require.Len(t, first.Credentials, 1)

	body = `{"platform_id":` + itoa(platformID) + `,"is_active":false,"credentials":[{"key":"ssh","value":"key-2"}]}`
	w = api.do(http.MethodPost, "/api/v1/users/me/integrations", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second struct {
		ID       int64 `json:"id"`
		IsActive bool  `json:"is_active"`
		Created  bool  `json:"created"`
	}
	mustDecodeJSON(t, w.Body.Bytes(), &second)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsActive, "is_active applies only on creation")

	w = api.do(http.MethodPost, "/api/v1/users/me/credentials", token, `{"platform_id":`+itoa(platformID)+`,"key":"api","value":"v3"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/users/me/integrations", token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listed []struct {
		ID          int64 `json:"id"`
		Credentials []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"credentials"`
	}
	mustDecodeJSON(t, w.Body.Bytes(), &listed)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Credentials, 3)
	assert.Equal(t, "ghp_1", listed[0].Credentials[0].Value)

	w = api.do(http.MethodGet, "/api/v1/users/me/platforms", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"github"`)

	w = api.do(http.MethodPatch, "/api/v1/users/me/integrations/"+itoa(first.ID), token, `{"is_active":false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"is_active":false`)

	w = api.do(http.MethodGet, "/api/v1/users/me/integrations?is_active=true", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/admin/users/"+itoa(aliceID)+"/platforms/"+itoa(platformID)+"/credentials?key=ssh", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"value":"key-2"`)
}

func TestIntegrationMissingReferences(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("alice", "alicepw", false)
	platformID := api.seedPlatform("github")
	token := api.token("alice", "alicepw")

	w := api.do(http.MethodPost, "/api/v1/users/me/integrations", token, `{"platform_id":999}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PLATFORM_NOT_FOUND", errorCode(t, w))

	w = api.do(http.MethodPost, "/api/v1/users/me/credentials", token, `{"platform_id":`+itoa(platformID)+`,"key":"k","value":"v"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "INTEGRATION_NOT_FOUND", errorCode(t, w))

	w = api.do(http.MethodPatch, "/api/v1/users/me/integrations/12345", token, `{"is_active":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, _, integrations, credentials := api.store.Counts()
	assert.Zero(t, integrations)
	assert.Zero(t, credentials)
}

func TestAdminAssignAndAddCredential(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("root", "rootpw", true)
	bobID := api.seedUser("bob", "bobpw", false)
	platformID := api.seedPlatform("aws")
	adminToken := api.token("root", "rootpw")
	bobToken := api.token("bob", "bobpw")

	addBody := `{"user_id":` + itoa(bobID) + `,"platform_id":` + itoa(platformID) + `,"key":"access_key","value":"AKIA"}`
	w := api.do(http.MethodPost, "/api/v1/admin/credentials", adminToken, addBody)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPost, "/api/v1/admin/integrations", adminToken, `{"user_id":`+itoa(bobID)+`,"platform_id":`+itoa(platformID)+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"created":true`)

	w = api.do(http.MethodPost, "/api/v1/admin/credentials", adminToken, addBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"value":"AKIA"`)

	w = api.do(http.MethodGet, "/api/v1/users/"+itoa(bobID)+"/platforms", bobToken, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"aws"`)

	w = api.do(http.MethodGet, "/api/v1/users/"+itoa(bobID)+"/platforms", adminToken, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/api/v1/admin/integrations", bobToken, `{"user_id":`+itoa(bobID)+`,"platform_id":`+itoa(platformID)+`}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListUserPlatforms_OtherUserForbidden(t *testing.T) {
	api := newTestAPI(t)
	aliceID := api.seedUser("alice", "alicepw", false)
	api.seedUser("bob", "bobpw", false)
	bobToken := api.token("bob", "bobpw")

	w := api.do(http.MethodGet, "/api/v1/users/"+itoa(aliceID)+"/platforms", bobToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthProbes(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/health/live", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/v1/health/ready", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	api.db.err = errors.New("connection refused")
	w = api.do(http.MethodGet, "/api/v1/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
