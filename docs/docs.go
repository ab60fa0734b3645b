// Package docs embeds the OpenAPI specification served at /api/openapi.yaml.
package docs

import _ "embed"

//go:embed openapi.yaml
var OpenAPISpec []byte
