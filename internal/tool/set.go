package tool

import (
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
)

// Set is the static mapping from tool name to handler, plus the schema
// list exposed to the model. Built-in tools (web_search) appear in the
// schema list but have no local handler; the endpoint executes them.
type Set struct {
	tools       map[string]Tool
	definitions []provider.ToolDefinition
}

// NewSet builds a Set from local tools and provider built-ins.
func NewSet(builtins []provider.ToolDefinition, tools ...Tool) *Set {
	s := &Set{
		tools:       make(map[string]Tool, len(tools)),
		definitions: make([]provider.ToolDefinition, 0, len(builtins)+len(tools)),
	}
	s.definitions = append(s.definitions, builtins...)
	for _, t := range tools {
		s.tools[t.Name()] = t
		s.definitions = append(s.definitions, t.Definition())
	}
	return s
}

// Definitions returns the schemas to send with every model round-trip.
func (s *Set) Definitions() []provider.ToolDefinition {
	return s.definitions
}

// Lookup resolves a local tool by name.
func (s *Set) Lookup(name string) (Tool, bool) {
	t, ok := s.tools[name]
	return t, ok
}

// WebSearchBuiltin is the provider-executed web search tool definition.
func WebSearchBuiltin() provider.ToolDefinition {
	return provider.ToolDefinition{Type: "web_search"}
}
