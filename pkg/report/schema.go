package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaName = "report.schema.json"

//go:embed report.schema.json
var schemaData []byte

var (
	reportSchema *jsonschema.Schema
	compileOnce  sync.Once
	compileErr   error
)

// compileSchema compiles the embedded report schema once
func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal report schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaName, doc); err != nil {
			compileErr = fmt.Errorf("add report schema resource: %w", err)
			return
		}

		reportSchema, err = compiler.Compile(schemaName)
		if err != nil {
			compileErr = fmt.Errorf("compile report schema: %w", err)
		}
	})
	return compileErr
}

// Validate checks serialized report JSON against the report schema
func Validate(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := reportSchema.Validate(v); err != nil {
		return fmt.Errorf("report validation failed: %w", err)
	}
	return nil
}
