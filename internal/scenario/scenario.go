// Package scenario loads and validates coordination scenario files.
//
// Scenarios are YAML documents describing a bounded queue and the
// scripted logical threads exercising it. Structural validation is
// delegated to an embedded CUE schema; op-specific argument rules that
// CUE cannot express concisely are checked in Go afterwards.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Op names accepted in scenario steps.
const (
	OpOffer                = "offer"
	OpPut                  = "put"
	OpCancellablePut       = "cancellable_put"
	OpOfferWait            = "offer_wait"
	OpCancellableOfferWait = "cancellable_offer_wait"
	OpTake                 = "take"
	OpCancellableTake      = "cancellable_take"
	OpPoll                 = "poll"
	OpPeek                 = "peek"
	OpPollWait             = "poll_wait"
	OpCancellablePollWait  = "cancellable_poll_wait"
	OpCancel               = "cancel"
	OpSleep                = "sleep"
)

// Scenario is one deterministic coordination scenario.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Capacity    int      `yaml:"capacity"`
	Threads     []Thread `yaml:"threads"`
}

// Thread is a scripted logical thread.
type Thread struct {
	Name  string `yaml:"name"`
	Scope string `yaml:"scope,omitempty"`
	Steps []Step `yaml:"steps"`
}

// Step is a single queue operation (or cancel/sleep) with its
// arguments.
type Step struct {
	Op        string `yaml:"op"`
	Value     string `yaml:"value,omitempty"`
	TimeoutMS int64  `yaml:"timeout_ms,omitempty"`
	Scope     string `yaml:"scope,omitempty"`
}

// ValidationError reports a scenario file that failed validation.
type ValidationError struct {
	Path   string // file path, empty when parsing bytes
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid scenario %s: %s", e.Path, e.Detail)
	}
	return fmt.Sprintf("invalid scenario: %s", e.Detail)
}

// Load reads, validates and decodes a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Path = path
			return nil, ve
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates and decodes scenario YAML bytes.
func Parse(data []byte) (*Scenario, error) {
	// Decode untyped first: CUE validates the raw document shape, so
	// typos surface as schema errors rather than silently dropped
	// fields.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scenario yaml: %w", err)
	}
	if doc == nil {
		return nil, &ValidationError{Detail: "empty document"}
	}

	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.validateOps(); err != nil {
		return nil, err
	}
	return &s, nil
}

// validateSchema unifies the document with the embedded CUE schema.
// The schema is a closed definition, so unknown fields are rejected.
func validateSchema(doc any) error {
	cctx := cuecontext.New()

	schema := cctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	val := cctx.Encode(doc)
	if err := val.Err(); err != nil {
		return &ValidationError{Detail: cueerrors.Details(err, nil)}
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Detail: cueerrors.Details(err, nil)}
	}
	return nil
}

// validateOps enforces per-op argument rules the schema leaves open.
func (s *Scenario) validateOps() error {
	names := make(map[string]bool, len(s.Threads))
	for _, th := range s.Threads {
		if names[th.Name] {
			return &ValidationError{Detail: fmt.Sprintf("duplicate thread name %q", th.Name)}
		}
		names[th.Name] = true

		for i, step := range th.Steps {
			at := func(detail string) error {
				return &ValidationError{
					Detail: fmt.Sprintf("thread %q step %d (%s): %s", th.Name, i+1, step.Op, detail),
				}
			}
			switch step.Op {
			case OpOffer, OpPut, OpCancellablePut:
				if step.Value == "" {
					return at("value is required")
				}
			case OpOfferWait, OpCancellableOfferWait:
				if step.Value == "" {
					return at("value is required")
				}
				if step.TimeoutMS <= 0 {
					return at("timeout_ms is required")
				}
			case OpPollWait, OpCancellablePollWait, OpSleep:
				if step.TimeoutMS <= 0 {
					return at("timeout_ms is required")
				}
			case OpCancel:
				if step.Scope == "" {
					return at("scope is required")
				}
			case OpTake, OpCancellableTake, OpPoll, OpPeek:
				// no arguments
			default:
				// unreachable when the schema validated
				return at("unknown op")
			}
		}
	}
	return nil
}
