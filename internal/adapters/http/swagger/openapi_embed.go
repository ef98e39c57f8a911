package swagger

import _ "embed"

// OpenAPI contains the embedded OpenAPI document for the backend routes.
//
//go:embed openapi.yaml
var OpenAPI []byte
