package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a single YAML file into a Document and validates it.
//
// `!include` expansion (spec.md §1, "YAML with !include") is left as a
// TODO for the external config collaborator: a full implementation walks
// the parsed yaml.Node tree looking for `!include <path>` tags and splices
// in the referenced document before this function's structural decode, the
// way a JSON-schema-validating preprocessor would. This loader only
// handles the trivial, already-merged single-file case.
//
// TODO(config): wire in !include expansion once the external collaborator
// that owns JSON-schema validation is in place; until then, multi-file
// configurations must be pre-merged by the caller.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	doc := DefaultDocument()
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if doc.Interfaces == nil {
		doc.Interfaces = make(map[string]IfaceDoc)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file %s: %w", path, err)
	}
	return doc, nil
}
