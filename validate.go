package abatch

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateResult checks a successful result text against a JSON schema.
// An empty schema disables validation. A violation (including a result that
// is not JSON at all) returns ErrResultSchemaInvalid so the caller can
// downgrade the outcome to a tool error.
func ValidateResult(schema, result string) error {
	if strings.TrimSpace(schema) == "" {
		return nil
	}

	schemaLoader := gojsonschema.NewStringLoader(schema)
	docLoader := gojsonschema.NewStringLoader(result)

	res, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResultSchemaInvalid, err)
	}

	if res.Valid() {
		return nil
	}

	errs := make([]string, 0, len(res.Errors()))
	for _, verr := range res.Errors() {
		errs = append(errs, verr.String())
	}

	return fmt.Errorf("%w: %s", ErrResultSchemaInvalid, strings.Join(errs, "; "))
}
