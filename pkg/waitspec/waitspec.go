// Package waitspec parses the replica-wait configuration supplied by
// callers as a list of key=value tokens, e.g. "max=5 timeout=300 continue=no".
package waitspec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultTimeout = 3600 // seconds
	DefaultCheck   = 1    // seconds between polls
)

var (
	ErrEmptySpec            = errors.New("wait spec is empty")
	ErrMalformedToken       = errors.New("wait spec token is not in key=value form")
	ErrUnknownKey           = errors.New("unknown wait spec key")
	ErrNonIntegerValue      = errors.New("wait spec value must be an integer")
	ErrInvalidContinueValue = errors.New("continue must be yes or no")
	ErrMissingMax           = errors.New("wait spec must include max")
)

// WaitSpec is the validated replica-wait configuration. It is immutable
// after Parse; a caller that needs different settings parses a new spec.
type WaitSpec struct {
	MaxLag   int  // maximum acceptable replica lag in seconds
	Timeout  int  // give up after this many seconds, counted across all replicas
	Check    int  // seconds to sleep between polls of the same replica
	Continue bool // on timeout, return success anyway instead of an error
}

// Parse validates an ordered list of key=value tokens and returns a WaitSpec.
// Recognized keys are max, timeout and continue (case-insensitive). Check is
// not settable from tokens and always takes its default; callers that need a
// different poll interval set it on the returned spec before handing it to
// the barrier.
func Parse(tokens []string) (*WaitSpec, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptySpec
	}
	spec := &WaitSpec{
		Timeout: DefaultTimeout,
		Check:   DefaultCheck,
	}
	maxSeen := false
	for _, token := range tokens {
		key, value, found := strings.Cut(token, "=")
		if !found || key == "" || value == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedToken, token)
		}
		switch strings.ToLower(key) {
		case "max":
			n, err := parseSeconds(token, value)
			if err != nil {
				return nil, err
			}
			spec.MaxLag = n
			maxSeen = true
		case "timeout":
			n, err := parseSeconds(token, value)
			if err != nil {
				return nil, err
			}
			spec.Timeout = n
		case "continue":
			switch strings.ToLower(value) {
			case "yes":
				spec.Continue = true
			case "no":
				spec.Continue = false
			default:
				return nil, fmt.Errorf("%w: %q", ErrInvalidContinueValue, token)
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, token)
		}
	}
	if !maxSeen {
		return nil, ErrMissingMax
	}
	return spec, nil
}

// parseSeconds accepts digit-only values. strconv.Atoi alone is too
// permissive here: it allows signs, and the spec format has always
// rejected "max=-1" and "max=+1".
func parseSeconds(token, value string) (int, error) {
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrNonIntegerValue, token)
		}
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNonIntegerValue, token)
	}
	return n, nil
}
