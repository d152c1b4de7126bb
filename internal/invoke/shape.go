package invoke

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/roach88/lkparity/internal/tree"
)

//go:embed shape.schema.json
var shapeSchemaJSON []byte

var (
	shapeSchema     *jsonschema.Schema
	shapeOnce       sync.Once
	shapeCompileErr error
)

func compileShape() error {
	shapeOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(shapeSchemaJSON))
		if err != nil {
			shapeCompileErr = fmt.Errorf("unmarshal shape schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("shape.schema.json", doc); err != nil {
			shapeCompileErr = fmt.Errorf("add shape schema resource: %w", err)
			return
		}
		shapeSchema, err = compiler.Compile("shape.schema.json")
		if err != nil {
			shapeCompileErr = fmt.Errorf("compile shape schema: %w", err)
		}
	})
	return shapeCompileErr
}

// CheckShape verifies the minimal well-formedness of a parsed view file: a
// top-level object whose "views" member is an array of objects.
//
// The error is a plain error; callers attribute it to the side that
// produced v.
func CheckShape(v tree.Value) error {
	if err := compileShape(); err != nil {
		return err
	}
	if err := shapeSchema.Validate(tree.ToAny(v)); err != nil {
		return fmt.Errorf("missing views collection: %w", err)
	}
	return nil
}
