//go:build tools

package tools

// Tool dependencies. oapi-codegen regenerates the chi and strict server in
// internal/api from api/openapi.yaml (go generate ./internal/api); goose
// applies internal/adapters/postgres/migrations by hand when needed.

import (
	_ "github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen"
	_ "github.com/pressly/goose/v3/cmd/goose"
)
