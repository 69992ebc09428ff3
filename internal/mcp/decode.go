package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/remixer/internal/errors"
)

// bindArgs copies the tool call arguments into a request struct. Arguments
// of the wrong JSON type are reported as INVALID_REQUEST naming the field.
func bindArgs[T any](req mcp.CallToolRequest) (T, error) {
	var input T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return input, errors.NewInvalidRequest("arguments are not valid JSON")
	}

	if err := json.Unmarshal(raw, &input); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) && typeErr.Field != "" {
			return input, errors.NewInvalidRequest(
				fmt.Sprintf("%s must be %s", typeErr.Field, jsonKind(typeErr.Type.Kind().String())))
		}
		return input, errors.NewInvalidRequest("invalid arguments: " + err.Error())
	}
	return input, nil
}

// jsonKind names a Go kind the way tool schemas do.
func jsonKind(kind string) string {
	switch kind {
	case "int", "int64", "float64":
		return "a number"
	case "bool":
		return "a boolean"
	case "string":
		return "a string"
	case "struct", "map":
		return "an object"
	case "slice":
		return "an array"
	default:
		return "a " + kind
	}
}
