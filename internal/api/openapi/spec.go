// Package openapi holds the HTTP contract: the embedded OpenAPI document,
// request and response types, and route registration for ServerInterface.
package openapi

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

var (
	swaggerOnce sync.Once
	swagger     *openapi3.T
	swaggerErr  error
)

// GetSwagger returns the parsed and validated OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(specYAML)
		if err != nil {
			swaggerErr = fmt.Errorf("load openapi document: %w", err)
			return
		}
		if err := doc.Validate(loader.Context); err != nil {
			swaggerErr = fmt.Errorf("validate openapi document: %w", err)
			return
		}
		swagger = doc
	})
	return swagger, swaggerErr
}

// SpecYAML returns the raw document, served at /openapi.yaml.
func SpecYAML() []byte {
	return specYAML
}
