package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tradeflow/message"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	identity := message.AgentIdentity{
		Name:     "risk",
		Produces: message.NewKindSet(message.KindRiskDecision),
		Consumes: message.NewKindSet(message.KindSignal),
	}
	assert.NoError(t, r.Register(identity))

	got, err := r.Lookup("risk")
	assert.NoError(t, err)
	assert.Equal(t, "risk", got.Name)
	assert.True(t, got.CanConsume(message.KindSignal))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.Error(t, r.Register(message.AgentIdentity{}))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryLookupUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Lookup("ghost")
	assert.True(t, errors.Is(err, ErrUnknownAgent))
}

func TestRegistryReregisterReplaces(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.NoError(t, r.Register(message.AgentIdentity{
		Name:     "execution",
		Consumes: message.NewKindSet(message.KindExecutionOrder),
	}))
	assert.NoError(t, r.Register(message.AgentIdentity{
		Name:     "execution",
		Consumes: message.NewKindSet(message.KindExecutionOrder, message.KindSignal),
	}))

	got, err := r.Lookup("execution")
	assert.NoError(t, err)
	assert.True(t, got.CanConsume(message.KindSignal))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryNamesSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, name := range []string{"reporting", "execution", "risk"} {
		assert.NoError(t, r.Register(message.AgentIdentity{Name: name}))
	}
	assert.Equal(t, []string{"execution", "reporting", "risk"}, r.Names())
}
