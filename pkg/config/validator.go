package config

import (
	"errors"
	"fmt"
	"strings"
)

// validate checks every tool in the registry for the invariants tool
// configuration requires: a name, a document kind, and no two tools claiming
// the same docType (dispatch routes by docType alone, so a collision would
// be ambiguous).
func validate(reg *Registry) error {
	var errs []error
	seenDocType := make(map[string]string)

	for name, tool := range reg.tools {
		if strings.TrimSpace(tool.Name) == "" {
			errs = append(errs, NewValidationError(name, "name", ErrMissingField))
		}
		if strings.TrimSpace(tool.DocType) == "" {
			errs = append(errs, NewValidationError(name, "docType", ErrMissingField))
			continue
		}
		if other, ok := seenDocType[tool.DocType]; ok && other != name {
			errs = append(errs, NewValidationError(name, "docType",
				fmt.Errorf("duplicate docType %q also used by tool %q", tool.DocType, other)))
			continue
		}
		seenDocType[tool.DocType] = name
	}

	return errors.Join(errs...)
}

// ErrMissingField indicates a required tool configuration field was empty.
var ErrMissingField = errors.New("missing required field")
