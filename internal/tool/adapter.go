package tool

import (
	"context"
	"fmt"

	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/mitchellh/mapstructure"
)

// Validator is an interface for request types that support validation
type Validator interface {
	Validate() error
}

// Executor is a function that executes a tool with a typed request.
type Executor[Req any] func(context.Context, Req) (string, error)

// Adapter provides common tool plumbing using generics: argument decoding
// (mapstructure), optional request validation, execution, and panic
// recovery. It keeps the individual tools free of protocol concerns.
type Adapter[Req any] struct {
	name        string
	description string
	definition  provider.ToolDefinition
	executor    Executor[Req]
}

// NewAdapter creates an adapter for a typed tool function.
func NewAdapter[Req any](
	name string,
	description string,
	paramSchema *provider.ParameterSchema,
	executor Executor[Req],
) *Adapter[Req] {
	return &Adapter[Req]{
		name:        name,
		description: description,
		definition: provider.ToolDefinition{
			Type:        "function",
			Name:        name,
			Description: description,
			Parameters:  paramSchema,
			Strict:      true,
		},
		executor: executor,
	}
}

// Name implements Tool
func (a *Adapter[Req]) Name() string {
	return a.name
}

// Description implements Tool
func (a *Adapter[Req]) Description() string {
	return a.description
}

// Definition implements Tool
func (a *Adapter[Req]) Definition() provider.ToolDefinition {
	return a.definition
}

// Execute implements Tool. The model's argument map is decoded into the
// typed request with mapstructure, validated if the request supports it,
// and handed to the executor. A panicking executor is converted to an
// error so a broken tool cannot take down the whole loop.
func (a *Adapter[Req]) Execute(ctx context.Context, args map[string]any) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", a.name, r)
		}
	}()

	var req Req
	if err := mapstructure.Decode(args, &req); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	if v, ok := any(req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return "", fmt.Errorf("%s validation failed: %w", a.name, err)
		}
	}

	return a.executor(ctx, req)
}
