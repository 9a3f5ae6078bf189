// Package api embeds the OpenAPI document so the server does not depend on
// its working directory.
package api

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
