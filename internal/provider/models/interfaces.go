package models

import "context"

// Provider defines the interface to the hosted model endpoint. The
// orchestrator only depends on this contract, never on a vendor SDK.
type Provider interface {
	// CreateResponse sends the full transcript plus the available tool
	// schemas and returns one response. The call is synchronous; it may
	// be cancelled through ctx.
	CreateResponse(ctx context.Context, req *Request) (*Response, error)
}
