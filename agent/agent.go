// Package agent defines the adapter contract every domain agent
// implements to plug into the router, and the registry that tracks
// which agents exist. The core depends only on this seam; the
// market/risk/execution/reporting/news/dashboard specializations stay
// behind it.
package agent

import (
	"context"

	"github.com/rustyeddy/tradeflow/message"
)

// Adapter is the capability-set interface for a domain agent.
// Handle receives one message addressed to the agent and returns zero
// or more outbound messages for the router to deliver.
type Adapter interface {
	Identity() message.AgentIdentity
	Handle(ctx context.Context, msg message.Message) ([]message.Message, error)
}
