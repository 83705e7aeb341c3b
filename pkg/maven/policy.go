package maven

import (
	"strings"

	"github.com/klibmirror/klibmirror/pkg/errors"
)

// Policy selects which sibling dependency variant is followed transitively.
//
// Kotlin multiplatform libraries publish one artifact per target, with the
// target encoded as an artifact name suffix ("-js" for the JS/IR backend,
// "-wasm-js" for the WASM backend). A mirror run follows exactly one
// variant; siblings for other targets are dropped from traversal entirely
// and never fetched.
type Policy string

const (
	// PolicyStandard follows "-js" artifacts (and not their "-wasm-js" siblings).
	PolicyStandard Policy = "standard"

	// PolicyWasm follows "-wasm-js" artifacts.
	PolicyWasm Policy = "wasm"
)

// ParsePolicy parses a policy name as given on the command line or in the
// config file. Matching is case-insensitive.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PolicyStandard):
		return PolicyStandard, nil
	case string(PolicyWasm):
		return PolicyWasm, nil
	}
	return "", errors.New(errors.ErrCodeInvalidPolicy, "unknown variant policy %q (available: standard, wasm)", s)
}

// Matches reports whether an artifact name belongs to the policy's variant.
func (p Policy) Matches(artifact string) bool {
	switch p {
	case PolicyWasm:
		return strings.HasSuffix(artifact, "-wasm-js")
	default:
		return strings.HasSuffix(artifact, "-js") && !strings.HasSuffix(artifact, "-wasm-js")
	}
}
