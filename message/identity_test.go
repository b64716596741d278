package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSet(t *testing.T) {
	t.Parallel()

	s := NewKindSet(KindSignal, KindSentimentScore)
	assert.True(t, s.Has(KindSignal))
	assert.True(t, s.Has(KindSentimentScore))
	assert.False(t, s.Has(KindRiskDecision))

	// Members come back sorted regardless of construction order.
	assert.Equal(t, []Kind{KindSentimentScore, KindSignal}, s.Kinds())
	assert.Equal(t, "sentiment_score,signal", s.String())

	empty := NewKindSet()
	assert.Empty(t, empty.Kinds())
	assert.False(t, empty.Has(KindSignal))
}

func TestAgentIdentityCapabilities(t *testing.T) {
	t.Parallel()

	identity := AgentIdentity{
		Name:     "risk",
		Produces: NewKindSet(KindRiskDecision),
		Consumes: NewKindSet(KindSignal),
	}

	assert.True(t, identity.CanProduce(KindRiskDecision))
	assert.False(t, identity.CanProduce(KindSignal))
	assert.True(t, identity.CanConsume(KindSignal))
	assert.False(t, identity.CanConsume(KindExecutionOrder))
}
