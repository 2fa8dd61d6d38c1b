// Package api: OpenAPI-описание HTTP API, отдаётся swagger UI.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
