package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// arguments wraps the raw argument map of a tool call.
type arguments map[string]interface{}

// toolArguments extracts the argument map from a request.
func toolArguments(request mcp.CallToolRequest) (arguments, error) {
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		if request.Params.Arguments == nil {
			return arguments{}, nil
		}
		return nil, fmt.Errorf("invalid arguments format")
	}
	return arguments(argsMap), nil
}

// stringArg returns a string argument.
// Returns an error if the argument is required but missing or invalid.
func (a arguments) stringArg(key string, required bool) (string, error) {
	val, ok := a[key]
	if !ok {
		if required {
			return "", fmt.Errorf("%s parameter is required", key)
		}
		return "", nil
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	if required && str == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}
	return str, nil
}
