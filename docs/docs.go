// Package docs хранит описание HTTP API в формате Swagger 2.0.
package docs

import _ "embed"

//go:embed swagger.json
var SwaggerJSON []byte
