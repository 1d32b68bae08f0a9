package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"

	"keyport.io/keyport/internal/api/openapi"
)

func TestNormalizeValidationPath(t *testing.T) {
	testCases := []struct {
		name     string
		basePath string
		path     string
		want     string
	}{
		{name: "strip prefix", basePath: "/api/v1", path: "/api/v1/users/me", want: "/users/me"},
		{name: "root path", basePath: "/api/v1", path: "/api/v1", want: "/"},
		{name: "no match", basePath: "/api/v1", path: "/metrics", want: "/metrics"},
		{name: "empty base", basePath: "", path: "/platforms", want: "/platforms"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeValidationPath(normalizeBasePath(tc.basePath), tc.path)
			if got != tc.want {
				t.Fatalf("normalizeValidationPath mismatch: got %q want %q", got, tc.want)
			}
		})
	}
}

func platformJSON() gin.H {
	return gin.H{
		"id":         1,
		"name":       "github",
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
}

func TestOpenAPIValidatorRejectsInvalidPlatformCreate(t *testing.T) {
	router := gin.New()
	router.Use(MustOpenAPIValidator("/api/v1"))
	router.POST("/api/v1/admin/platforms", func(c *gin.Context) {
		c.JSON(http.StatusOK, platformJSON())
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/platforms", bytes.NewBufferString(`{"description":"no name"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", resp.Code)
	}
	var body openapi.Error
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "INVALID_REQUEST" {
		t.Fatalf("code = %q, want INVALID_REQUEST", body.Code)
	}
	if body.Params["in"] != "body" || body.Params["field"] != "name" {
		t.Fatalf("params = %v, want body field name", body.Params)
	}
}

func TestOpenAPIValidatorAcceptsValidPlatformCreate(t *testing.T) {
	router := gin.New()
	router.Use(MustOpenAPIValidator("/api/v1"))
	router.POST("/api/v1/admin/platforms", func(c *gin.Context) {
		c.JSON(http.StatusOK, platformJSON())
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/platforms", bytes.NewBufferString(`{"name":"github","description":"code hosting"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid body, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func newLoginRouter() *gin.Engine {
	router := gin.New()
	router.Use(MustOpenAPIValidator("/api/v1"))
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		if c.PostForm("username") != "alice" || c.PostForm("password") != "pw" {
			c.Status(http.StatusTeapot)
			return
		}
		now := time.Now().UTC()
		c.JSON(http.StatusOK, gin.H{
			"access_token":       "a",
			"refresh_token":      "r",
			"token_type":         "Bearer",
			"expires_at":         now.Format(time.RFC3339),
			"refresh_expires_at": now.Format(time.RFC3339),
		})
	})
	return router
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestOpenAPIValidatorAcceptsLoginForm(t *testing.T) {
	router := newLoginRouter()

	tests := []struct {
		name string
		form url.Values
	}{
		{"username and password only", url.Values{"username": {"alice"}, "password": {"pw"}}},
		{"with grant_type", url.Values{"username": {"alice"}, "password": {"pw"}, "grant_type": {"password"}}},
		{"with scope", url.Values{"username": {"alice"}, "password": {"pw"}, "scope": {"read write"}}},
		{"full oauth2 form", url.Values{
			"username": {"alice"}, "password": {"pw"}, "grant_type": {"password"}, "scope": {""}, "client_id": {"cli"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postForm(router, "/api/v1/auth/login", tt.form)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200 for valid form, got %d body=%s", resp.Code, resp.Body.String())
			}
		})
	}
}

func TestOpenAPIValidatorRejectsLoginFormWithoutPassword(t *testing.T) {
	resp := postForm(newLoginRouter(), "/api/v1/auth/login", url.Values{"username": {"alice"}})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without password, got %d body=%s", resp.Code, resp.Body.String())
	}
	var body openapi.Error
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "INVALID_REQUEST" {
		t.Fatalf("code = %q, want INVALID_REQUEST", body.Code)
	}
}

func TestDecodeFormBody(t *testing.T) {
	schema := openapi3.NewObjectSchema().
		WithProperty("username", openapi3.NewStringSchema()).
		WithProperty("scopes", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))

	got, err := decodeFormBody(strings.NewReader("username=alice&scopes=a&scopes=b"), nil, schema.NewRef(), nil)
	if err != nil {
		t.Fatalf("decodeFormBody() error = %v", err)
	}
	form, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("decodeFormBody() = %T, want map", got)
	}
	if form["username"] != "alice" {
		t.Fatalf("username = %v, want alice", form["username"])
	}
	if scopes, _ := form["scopes"].([]any); len(scopes) != 2 {
		t.Fatalf("scopes = %v, want two values", form["scopes"])
	}
	if _, present := form["grant_type"]; present {
		t.Fatal("absent field must not appear in the decoded form")
	}

	if _, err := decodeFormBody(strings.NewReader("%zz"), nil, schema.NewRef(), nil); err == nil {
		t.Fatal("decodeFormBody() expected error for malformed body")
	}
}

func TestOpenAPIValidatorRejectsNonConformingResponse(t *testing.T) {
	router := gin.New()
	router.Use(MustOpenAPIValidator("/api/v1"))
	router.GET("/api/v1/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "sideways"})
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for off-contract response, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"code":"INTERNAL_ERROR"`) {
		t.Fatalf("body = %s, want INTERNAL_ERROR", resp.Body.String())
	}
	if strings.Contains(resp.Body.String(), "sideways") {
		t.Fatal("off-contract body leaked to the client")
	}
}

func TestOpenAPIValidatorPassesUndocumentedPaths(t *testing.T) {
	router := gin.New()
	router.Use(MustOpenAPIValidator("/api/v1"))
	router.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "# metrics")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for undocumented path, got %d", resp.Code)
	}
}
