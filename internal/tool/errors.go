package tool

import "errors"

var (
	// ErrToolNotFound is returned when a tool is not found in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrEmptyToolName is returned when a tool name is empty.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrDuplicateTool is returned when registering a tool with a name that
	// already exists in the registry.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrArgumentParse is returned when the model's call arguments are not a
	// JSON object.
	ErrArgumentParse = errors.New("tool arguments are not a valid JSON object")

	// ErrSchemaGenerationExhausted is returned when every schema generation
	// attempt failed and the tool cannot be registered.
	ErrSchemaGenerationExhausted = errors.New("tool schema generation failed after all attempts")

	// ErrMalformedSchema is returned when a generated or supplied tool
	// definition lacks a name, description or parameters object.
	ErrMalformedSchema = errors.New("malformed tool definition")

	// ErrInvalidPolicy is returned when a tool policy string cannot be parsed
	// or names an unknown tool.
	ErrInvalidPolicy = errors.New("invalid tool policy")

	// ErrNoSchemaGenerator is returned when a tool without a schema is
	// registered on a registry that has no generator.
	ErrNoSchemaGenerator = errors.New("tool has no schema and no generator is configured")
)
