package abatch

import (
	"errors"
	"testing"
)

const resultSchema = `{
  "type":"object",
  "properties":{
    "result":{"type":"string"}
  },
  "required":["result"]
}`

func TestValidateResultEmptySchemaDisables(t *testing.T) {
	if err := ValidateResult("", "anything goes"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestValidateResultValid(t *testing.T) {
	if err := ValidateResult(resultSchema, `{"result":"done"}`); err != nil {
		t.Fatalf("expected valid result, got %v", err)
	}
}

func TestValidateResultViolation(t *testing.T) {
	err := ValidateResult(resultSchema, `{"result":42}`)
	if !errors.Is(err, ErrResultSchemaInvalid) {
		t.Fatalf("expected ErrResultSchemaInvalid, got %v", err)
	}
}

func TestValidateResultNonJSON(t *testing.T) {
	err := ValidateResult(resultSchema, "plain prose answer")
	if !errors.Is(err, ErrResultSchemaInvalid) {
		t.Fatalf("expected ErrResultSchemaInvalid for non-JSON result, got %v", err)
	}
}
