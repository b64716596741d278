package message

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tradeflow/pkg/id"
)

func TestNewPopulatesEnvelope(t *testing.T) {
	t.Parallel()

	correlation := id.New()
	msg := New(KindSignal, "market", correlation, Signal{}, "risk")

	assert.True(t, id.IsValid(msg.ID))
	assert.Equal(t, KindSignal, msg.Kind)
	assert.Equal(t, "market", msg.Sender)
	assert.Equal(t, []string{"risk"}, msg.Recipients)
	assert.Equal(t, correlation, msg.CorrelationID)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	valid := New(KindRiskDecision, "risk", id.New(), RiskDecision{}, "coordinator")
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Message)
	}{
		{"missing id", func(m *Message) { m.ID = "" }},
		{"unknown kind", func(m *Message) { m.Kind = "telemetry" }},
		{"missing sender", func(m *Message) { m.Sender = "" }},
		{"no recipients", func(m *Message) { m.Recipients = nil }},
		{"missing correlation", func(m *Message) { m.CorrelationID = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := valid
			tc.mutate(&msg)
			assert.Error(t, msg.Validate())
		})
	}
}

func TestKindIsValid(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds {
		assert.True(t, k.IsValid(), "kind %s", k)
	}
	assert.False(t, Kind("").IsValid())
	assert.False(t, Kind("heartbeat").IsValid())
}

func TestSignalValidate(t *testing.T) {
	t.Parallel()

	sig := Signal{
		Instrument:    "AAPL",
		Side:          SideBuy,
		SuggestedSize: decimal.NewFromInt(10),
		Confidence:    0.8,
	}
	assert.NoError(t, sig.Validate())

	noInstrument := sig
	noInstrument.Instrument = ""
	assert.Error(t, noInstrument.Validate())

	badSide := sig
	badSide.Side = "hold"
	assert.Error(t, badSide.Validate())

	zeroSize := sig
	zeroSize.SuggestedSize = decimal.Zero
	assert.Error(t, zeroSize.Validate())

	negSize := sig
	negSize.SuggestedSize = decimal.NewFromInt(-5)
	assert.Error(t, negSize.Validate())

	negVol := sig
	negVol.Volatility = -0.1
	assert.Error(t, negVol.Validate())
}
