package node

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/screen.schema.json
var schemaFS embed.FS

const schemaPath = "schema/screen.schema.json"

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	data, err := schemaFS.ReadFile(schemaPath)
	if err != nil {
		panic(fmt.Sprintf("read embedded screen schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("screen.schema.json", bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("add screen schema resource: %v", err))
	}
	schema, err := compiler.Compile("screen.schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile screen schema: %v", err))
	}
	return schema
}

// ValidateDocument checks raw screen JSON against the embedded document
// schema. Validation is stricter than Parse: it rejects wrong value kinds
// that Parse would coerce or ignore.
func ValidateDocument(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return fmt.Errorf("decode screen document: %w", err)
	}
	if err := compiledSchema.Validate(value); err != nil {
		return fmt.Errorf("screen document is invalid: %w", err)
	}
	return nil
}
