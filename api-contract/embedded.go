package apicontract

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yml
var specBytes []byte

// GetSpecBytes returns the embedded OpenAPI document as written.
func GetSpecBytes() []byte {
	return specBytes
}

// Load parses the embedded document without resolving external references.
func Load() (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(specBytes)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	return doc, nil
}
