// Package featuregate looks up boolean capability flags. Providers are
// injected into the loops that consult them so tests can substitute
// deterministic ones.
package featuregate

import "context"

// Provider answers whether a flag is enabled, optionally for a specific
// actor. An empty actor asks for the flag's global value.
type Provider interface {
	Enabled(ctx context.Context, flag, actor string) (bool, error)
}

// Static is a fixed-answer provider for tests and local runs.
type Static bool

func (s Static) Enabled(context.Context, string, string) (bool, error) {
	return bool(s), nil
}
