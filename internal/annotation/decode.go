package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidShape is returned when a document lacks the mandatory
// top-level structure (a responses list).
var ErrInvalidShape = errors.New("invalid annotation shape")

// treeSchema pins only the mandatory shape: responses must be present
// and be an array of objects. Everything inside a response is optional.
const treeSchemaJSON = `{
  "type": "object",
  "required": ["responses"],
  "properties": {
    "responses": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "fullTextAnnotation": {
            "type": "object",
            "properties": {
              "pages": {"type": "array"},
              "text": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

var treeSchema = jsonschema.MustCompileString("annotation.json", treeSchemaJSON)

// Decode parses a raw annotation document and validates its mandatory
// shape. Documents without a responses list fail with ErrInvalidShape;
// an empty responses list is valid.
func Decode(data []byte) (*Tree, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse annotation document: %w", err)
	}

	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document is not an object", ErrInvalidShape)
	}
	if _, ok := root["responses"]; !ok {
		return nil, fmt.Errorf("%w: missing responses list", ErrInvalidShape)
	}
	if err := treeSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode annotation document: %w", err)
	}
	return &tree, nil
}

// DecodeFile reads and decodes an annotation document from disk.
func DecodeFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation file: %w", err)
	}
	return Decode(data)
}
