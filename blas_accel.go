//go:build accelerate

package main

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

const blasName = "netlib (cgo)"

// Build with `-tags accelerate` and CGO_LDFLAGS pointing at a CBLAS
// (e.g. "-framework Accelerate" on macOS).
func init() {
	blas64.Use(netlib.Implementation{})
}
