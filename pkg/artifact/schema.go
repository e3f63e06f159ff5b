package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://sator.schemas.local/decision-artifact.schema.json"

// artifactSchema pins the document shape only. Section contents are opaque.
const artifactSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["incident", "evidence", "contradictions", "trust_receipt", "operator_decisions", "timeline"],
  "properties": {
    "artifact_id": {"type": "string"},
    "incident_id": {"type": "string"},
    "scenario_id": {"type": "string"},
    "created_at": {"type": "string"},
    "operator": {"type": "string"}
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(artifactSchema)); err != nil {
			compileErr = fmt.Errorf("artifact schema load failed: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate checks that data is a decision artifact document.
func Validate(data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return nil
}
