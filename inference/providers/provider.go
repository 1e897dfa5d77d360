// Package providers - Execution providers, inference sessions and their lifecycle.
package providers

import (
	"strings"

	"github.com/pkg/errors"
)

// ExecutionProvider identifies a requested inference provider.
type ExecutionProvider string

const (
	// CPU is the portable provider and the last resort of every chain.
	CPU ExecutionProvider = "cpu"
	// WebGL is the general GPU provider.
	WebGL ExecutionProvider = "webgl"
	// WASM is the SIMD-accelerated CPU provider.
	WASM ExecutionProvider = "wasm"
	// WebGPU is the high-performance GPU provider.
	WebGPU ExecutionProvider = "webgpu"
)

// ErrUnknownProvider is returned for provider identifiers outside cpu|webgl|wasm|webgpu.
var ErrUnknownProvider = errors.New("providers: unknown execution provider")

// chains lists, per provider, the providers attempted in order when loading.
var chains = map[ExecutionProvider][]ExecutionProvider{
	CPU:    {CPU},
	WebGL:  {WebGL, CPU},
	WASM:   {WASM, CPU},
	WebGPU: {WebGPU, WebGL, CPU},
}

// ParseExecutionProvider parses a provider identifier, case-insensitively.
func ParseExecutionProvider(s string) (ExecutionProvider, error) {
	p := ExecutionProvider(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Validate reports whether p is a known provider.
func (p ExecutionProvider) Validate() error {
	if _, ok := chains[p]; !ok {
		return errors.Wrapf(ErrUnknownProvider, "%q", string(p))
	}
	return nil
}

// String returns the identifier.
func (p ExecutionProvider) String() string {
	return string(p)
}

// Chain returns the ordered attempts for loading p. The returned slice is a copy.
//
// Arguments:
//   - p: The requested provider.
//
// Returns:
//   - []ExecutionProvider: webgpu → [webgpu webgl cpu], webgl → [webgl cpu],
//     wasm → [wasm cpu], cpu → [cpu]. Unknown providers return nil.
func Chain(p ExecutionProvider) []ExecutionProvider {
	c, ok := chains[p]
	if !ok {
		return nil
	}
	return append([]ExecutionProvider(nil), c...)
}

// Providers returns every known provider.
func Providers() []ExecutionProvider {
	return []ExecutionProvider{CPU, WebGL, WASM, WebGPU}
}
