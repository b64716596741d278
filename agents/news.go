package agents

import (
	"context"
	"time"

	"github.com/rustyeddy/tradeflow/message"
	"github.com/rustyeddy/tradeflow/pkg/id"
)

// NewsAgent publishes sentiment scores for the coordinator's
// enrichment cache. Scores are supplied from outside; turning news
// text into a number is someone else's problem.
type NewsAgent struct {
	name      string
	recipient string
}

// NewNewsAgent creates the news adapter. Scores are addressed to
// recipient, normally the coordinator.
func NewNewsAgent(name, recipient string) *NewsAgent {
	if name == "" {
		name = "news"
	}
	return &NewsAgent{name: name, recipient: recipient}
}

// Identity declares the news stage's capabilities.
func (a *NewsAgent) Identity() message.AgentIdentity {
	return message.AgentIdentity{
		Name:     a.name,
		Produces: message.NewKindSet(message.KindSentimentScore),
		Consumes: message.NewKindSet(),
	}
}

// Handle is a no-op; the news agent only produces.
func (a *NewsAgent) Handle(ctx context.Context, msg message.Message) ([]message.Message, error) {
	return nil, nil
}

// Observe wraps a sentiment observation in a message ready to send.
// Each observation starts its own correlation chain; sentiment is
// context, not part of any trade task.
func (a *NewsAgent) Observe(instrument string, score float64, source string) message.Message {
	payload := message.SentimentScore{
		Instrument: instrument,
		Score:      score,
		Source:     source,
		ObservedAt: time.Now().UTC(),
	}
	return message.New(message.KindSentimentScore, a.name, id.New(), payload, a.recipient)
}
