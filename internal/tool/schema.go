package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flemzord/mategen/internal/provider"
)

const (
	defaultSchemaAttempts = 3
	defaultSchemaWait     = time.Minute
)

const exampleFunctionDescription = "Chen Ming algorithm function, which defines a special dataset calculation process\n" +
	":param data: Required parameter, represents the data table used for calculations, represented as a string\n" +
	":return: The result of the Chen Ming function calculation, returned as a DataFrame object in JSON format"

const exampleFunctionDefinition = `{"name":"chen_ming_algorithm","description":"Function for executing the Chen Ming algorithm, which defines a special dataset calculation process","parameters":{"type":"object","properties":{"data":{"type":"string","description":"Dataset for executing the Chen Ming algorithm"}},"required":["data"]}}`

func exampleRequest() string {
	return fmt.Sprintf("Here is a function description: %s. "+
		"Based on this function description, please create a function object to describe the basic information of this function. "+
		"This function object is a JSON-formatted dictionary with the following 5 requirements: "+
		"1. The dictionary has three key-value pairs; "+
		"2. The first key-value pair has the key \"name\" with the value being the function's name: %s, which is also a string; "+
		"3. The second key-value pair has the key \"description\" with the value being the function's description, which is also a string; "+
		"4. The third key-value pair has the key \"parameters\" with the value being a JSON Schema object describing the function's parameter input specification; "+
		"5. The output must be a JSON-formatted dictionary, and no additional pre- or post-explanatory statements are needed.",
		exampleFunctionDescription, "chen_ming_algorithm")
}

// SchemaPrompt builds the few-shot conversation asking the model for the
// definition of the named tool.
func SchemaPrompt(name, description string) []provider.Message {
	return []provider.Message{
		{Role: provider.RoleUser, Name: "example_user", Content: exampleRequest()},
		{Role: provider.RoleAssistant, Name: "example_assistant", Content: exampleFunctionDefinition},
		{Role: provider.RoleUser, Name: "example_user", Content: fmt.Sprintf(
			"Now there is another function, with the function name: %s; and the function description: %s; "+
				"Please help me create a function object for this current function in a similar format.",
			name, description)},
	}
}

// ModelSchemaGenerator asks the model to write tool definitions.
type ModelSchemaGenerator struct {
	Provider provider.Provider

	// Model overrides the provider's default model when set.
	Model string

	// Attempts is the number of tries before giving up. Defaults to 3.
	Attempts int

	// Wait is the pause between failed attempts. Defaults to one minute.
	Wait time.Duration

	Logger *slog.Logger
}

var _ SchemaGenerator = (*ModelSchemaGenerator)(nil)

// Generate implements SchemaGenerator. Provider errors and malformed output
// both count as failed attempts.
func (g *ModelSchemaGenerator) Generate(ctx context.Context, name, description string) (provider.ToolDefinition, error) {
	attempts := g.Attempts
	if attempts <= 0 {
		attempts = defaultSchemaAttempts
	}
	wait := g.Wait
	if wait < 0 {
		wait = 0
	} else if wait == 0 {
		wait = defaultSchemaWait
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		def, err := g.generateOnce(ctx, name, description)
		if err == nil {
			return def, nil
		}
		lastErr = err
		logger.Warn("tool schema generation failed",
			"tool", name, "attempt", attempt, "max_attempts", attempts, "error", err)

		if attempt == attempts {
			break
		}
		if err := provider.Wait(ctx, wait); err != nil {
			return provider.ToolDefinition{}, err
		}
	}
	return provider.ToolDefinition{}, fmt.Errorf("%w: %s: %w", ErrSchemaGenerationExhausted, name, lastErr)
}

func (g *ModelSchemaGenerator) generateOnce(ctx context.Context, name, description string) (provider.ToolDefinition, error) {
	resp, err := g.Provider.Complete(ctx, provider.CompletionRequest{
		Model:    g.Model,
		Messages: SchemaPrompt(name, description),
	})
	if err != nil {
		return provider.ToolDefinition{}, err
	}
	return ParseDefinition(resp.Message.Content, name)
}

// ParseDefinition decodes a model-written tool definition. Markdown code
// fences around the JSON are tolerated; keys other than name, description
// and parameters are not.
func ParseDefinition(content, name string) (provider.ToolDefinition, error) {
	dec := json.NewDecoder(strings.NewReader(stripFence(content)))
	dec.DisallowUnknownFields()

	var def provider.ToolDefinition
	if err := dec.Decode(&def); err != nil {
		return provider.ToolDefinition{}, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}
	if dec.More() {
		return provider.ToolDefinition{}, fmt.Errorf("%w: %s: trailing data after definition", ErrMalformedSchema, name)
	}
	if strings.TrimSpace(def.Description) == "" {
		return provider.ToolDefinition{}, fmt.Errorf("%w: %s has no description", ErrMalformedSchema, name)
	}
	if err := ValidateDefinition(def, name); err != nil {
		return provider.ToolDefinition{}, err
	}
	return def, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
