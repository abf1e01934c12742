// Package tools implements the MCP tools. Each tool decodes its JSON
// arguments, validates them and calls one engine operation.
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/moolen/riskgraph/internal/riskerr"
)

var validate = validator.New()

// decodeInput unmarshals and validates tool arguments. An empty input is
// treated as an empty object.
func decodeInput(input json.RawMessage, dst interface{}) error {
	if len(input) > 0 && string(input) != "null" {
		if err := json.Unmarshal(input, dst); err != nil {
			return riskerr.InvalidParameter("arguments", "failed to parse input: %v", err)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return riskerr.InvalidParameter("arguments", "%s", validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return "invalid arguments: " + strings.Join(parts, "; ")
}
