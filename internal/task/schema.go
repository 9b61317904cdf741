package task

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://todo.local/schemas/task.schema.json"

//go:embed task.schema.json
var schemaJSON []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load task schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile task schema: %w", err)
	}
	return schema, nil
})

// validateDocument checks a JSON-encoded document body against the task schema.
func validateDocument(body []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid document body: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return err
		}
		var problems []string
		collectSchemaErrors(&problems, ve)
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func collectSchemaErrors(problems *[]string, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}
	if len(err.Causes) == 0 {
		path := strings.TrimPrefix(strings.TrimPrefix(err.InstanceLocation, "#"), "/")
		if path == "" {
			*problems = append(*problems, err.Message)
		} else {
			*problems = append(*problems, path+": "+err.Message)
		}
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(problems, cause)
	}
}
