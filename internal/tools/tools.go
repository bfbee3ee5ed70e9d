//go:build tools

// Package tools pins the binaries used during development so every
// checkout runs the same versions.
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/jackc/tern/v2"
	_ "goa.design/model/cmd/mdl"
	_ "goa.design/model/cmd/stz"
)
