package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyport.io/keyport/internal/api/openapi"
	apperrors "keyport.io/keyport/internal/pkg/errors"
	"keyport.io/keyport/internal/pkg/logger"
)

const formContentType = "application/x-www-form-urlencoded"

var registerFormDecoder sync.Once

// MustOpenAPIValidator creates an OpenAPI runtime validator middleware and panics on setup failure.
func MustOpenAPIValidator(basePath string) gin.HandlerFunc {
	mw, err := NewOpenAPIValidator(basePath)
	if err != nil {
		panic(fmt.Sprintf("init openapi validator: %v", err))
	}
	return mw
}

// NewOpenAPIValidator validates requests and responses against the embedded
// OpenAPI document. Paths the document does not describe pass through.
//
// A request that breaks the contract is rejected with 400 INVALID_REQUEST
// naming the offending field. A handler response that breaks it is replaced
// with 500 INTERNAL_ERROR and logged.
func NewOpenAPIValidator(basePath string) (gin.HandlerFunc, error) {
	swagger, err := openapi.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("create openapi router: %w", err)
	}
	registerFormDecoder.Do(func() {
		openapi3filter.RegisterBodyDecoder(formContentType, decodeFormBody)
	})

	basePath = normalizeBasePath(basePath)
	options := &openapi3filter.Options{
		// Bearer tokens are checked by Guard earlier in the chain.
		AuthenticationFunc: func(context.Context, *openapi3filter.AuthenticationInput) error { return nil },
	}

	return func(c *gin.Context) {
		route, pathParams, ok := findRoute(router, c.Request, basePath)
		if !ok {
			// /metrics, /log/level and unknown paths are gin's to answer.
			c.Next()
			return
		}

		reqInput := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), reqInput); err != nil {
			RenderError(c, requestContractError(err))
			return
		}

		buffered := newBufferedResponseWriter(c.Writer)
		c.Writer = buffered
		c.Next()
		c.Writer = buffered.ResponseWriter

		respInput := &openapi3filter.ResponseValidationInput{
			RequestValidationInput: reqInput,
			Status:                 buffered.Status(),
			Header:                 buffered.Header().Clone(),
			Options:                options,
		}
		if buffered.Size() > 0 {
			respInput.SetBodyBytes(buffered.body.Bytes())
		}
		if err := openapi3filter.ValidateResponse(c.Request.Context(), respInput); err != nil {
			logger.Error("Response breaks the API contract",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", buffered.Status()),
				zap.String("request_id", GetRequestID(c.Request.Context())),
				zap.Error(err),
			)
			buffered.ResetJSON(http.StatusInternalServerError, openapi.Error{
				Code:    apperrors.CodeInternal,
				Message: "internal server error",
			})
		}

		if _, err := buffered.FlushToOriginal(); err != nil {
			logger.Warn("Flush buffered response failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
	}, nil
}

// findRoute matches the request as served and, failing that, with basePath
// stripped. The request URL is left unchanged.
func findRoute(router routers.Router, req *http.Request, basePath string) (*routers.Route, map[string]string, bool) {
	if route, params, err := router.FindRoute(req); err == nil {
		return route, params, true
	}
	stripped := normalizeValidationPath(basePath, req.URL.Path)
	if stripped == req.URL.Path {
		return nil, nil, false
	}

	origPath, origRawPath := req.URL.Path, req.URL.RawPath
	req.URL.Path, req.URL.RawPath = stripped, ""
	route, params, err := router.FindRoute(req)
	req.URL.Path, req.URL.RawPath = origPath, origRawPath
	return route, params, err == nil
}

func normalizeBasePath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" || basePath == "/" {
		return ""
	}
	return "/" + strings.Trim(basePath, "/")
}

func normalizeValidationPath(basePath, path string) string {
	switch {
	case basePath == "" && path == "":
		return "/"
	case basePath == "":
		return path
	case path == basePath:
		return "/"
	case strings.HasPrefix(path, basePath+"/"):
		return strings.TrimPrefix(path, basePath)
	}
	return path
}

// requestContractError turns a kin-openapi validation failure into the
// API's INVALID_REQUEST error. params.in and params.field locate the input.
func requestContractError(err error) *apperrors.AppError {
	message := err.Error()
	params := map[string]interface{}{}

	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.Parameter != nil:
			params["in"] = reqErr.Parameter.In
			params["field"] = reqErr.Parameter.Name
		case reqErr.RequestBody != nil:
			params["in"] = "body"
		}
		if reqErr.Reason != "" {
			message = reqErr.Reason
		}
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		if pointer := schemaErr.JSONPointer(); len(pointer) > 0 {
			params["field"] = strings.Join(pointer, ".")
		}
		message = schemaErr.Reason
	}

	return apperrors.Wrap(err, apperrors.CodeInvalidRequest, message, http.StatusBadRequest).WithParams(params)
}

// decodeFormBody decodes an OAuth2 password form. Only fields present in the
// body appear in the result, so optional fields such as grant_type and scope
// may be left out. Array properties keep every value; the rest keep the first.
func decodeFormBody(body io.Reader, _ http.Header, schema *openapi3.SchemaRef, _ openapi3filter.EncodingFn) (any, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read form body: %w", err)
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse form body: %w", err)
	}

	var properties openapi3.Schemas
	if schema != nil && schema.Value != nil {
		properties = schema.Value.Properties
	}

	form := make(map[string]any, len(values))
	for name, vs := range values {
		if len(vs) == 0 {
			continue
		}
		if prop := properties[name]; prop != nil && prop.Value != nil && prop.Value.Type.Is(openapi3.TypeArray) {
			items := make([]any, len(vs))
			for i, v := range vs {
				items[i] = v
			}
			form[name] = items
			continue
		}
		form[name] = vs[0]
	}
	return form, nil
}

// bufferedResponseWriter holds the handler's response until it has been
// checked against the contract.
type bufferedResponseWriter struct {
	gin.ResponseWriter
	body        bytes.Buffer
	statusCode  int
	wroteHeader bool
}

func newBufferedResponseWriter(w gin.ResponseWriter) *bufferedResponseWriter {
	return &bufferedResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *bufferedResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = code
	w.wroteHeader = true
}

func (w *bufferedResponseWriter) WriteHeaderNow() {
	w.wroteHeader = true
}

func (w *bufferedResponseWriter) Write(data []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return w.body.Write(data)
}

func (w *bufferedResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *bufferedResponseWriter) Status() int { return w.statusCode }

func (w *bufferedResponseWriter) Size() int { return w.body.Len() }

func (w *bufferedResponseWriter) Written() bool { return w.wroteHeader }

// ResetJSON discards the buffered body and replaces it with payload.
func (w *bufferedResponseWriter) ResetJSON(statusCode int, payload openapi.Error) {
	w.statusCode = statusCode
	w.wroteHeader = true
	w.body.Reset()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"code":"INTERNAL_ERROR","message":"internal server error"}`)
	}
	w.body.Write(data)
}

func (w *bufferedResponseWriter) FlushToOriginal() (int, error) {
	w.ResponseWriter.WriteHeader(w.statusCode)
	if w.body.Len() == 0 {
		return 0, nil
	}
	return w.ResponseWriter.Write(w.body.Bytes())
}
