// Package content loads document payload files (YAML or JSON) and validates
// them against an embedded CUE schema before composition.
package content

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semreport/composer"
	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/scoring"
)

//go:embed schema.cue
var schemaCUE []byte

// Payload is one document request: what to compose, how it is classified,
// and the status to advance it to after QA.
type Payload struct {
	Type           document.Type           `json:"type" yaml:"type"`
	Classification document.Classification `json:"classification" yaml:"classification"`
	Status         document.Status         `json:"status" yaml:"status"`

	composer.Content `yaml:",inline"`

	// Scoring is nil when the file has no scoring key
	Scoring []scoring.Entry `json:"scoring,omitempty" yaml:"scoring,omitempty"`
}

// ValidationError lists every schema violation in a payload.
type ValidationError struct {
	Source   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid payload: %s", e.Source, strings.Join(e.Problems, "; "))
}

// Load reads and validates a payload file. The format is chosen by
// extension: .json is JSON, anything else is YAML.
func Load(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a payload. source names the input in errors.
// JSON input is accepted since it is valid YAML.
func Parse(data []byte, source string) (*Payload, error) {
	var raw any
	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%s: parse json: %w", source, err)
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: parse yaml: %w", source, err)
	}
	if raw == nil {
		return nil, &ValidationError{Source: source, Problems: []string{"empty payload"}}
	}

	// A cue.Context is not safe for concurrent use; one per call keeps
	// Parse usable from parallel batch workers.
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Payload")).Unify(ctx.Encode(raw))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, newValidationError(source, err)
	}

	// Round-trip through JSON so CUE defaults land in the Go struct.
	resolved, err := value.MarshalJSON()
	if err != nil {
		return nil, newValidationError(source, err)
	}
	var p Payload
	if err := json.Unmarshal(resolved, &p); err != nil {
		return nil, fmt.Errorf("%s: decode payload: %w", source, err)
	}
	return &p, nil
}

func newValidationError(source string, err error) error {
	var problems []string
	for _, e := range cueerrors.Errors(err) {
		problems = append(problems, e.Error())
	}
	if len(problems) == 0 {
		problems = []string{err.Error()}
	}
	return &ValidationError{Source: source, Problems: problems}
}

// IsValidationError reports whether err is a schema violation rather than
// an I/O or syntax failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
