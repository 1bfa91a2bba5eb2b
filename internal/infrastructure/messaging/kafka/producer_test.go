package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
)

type fakeWriter struct {
	messages []kafkago.Message
	writeErr error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishWrapsEnvelope(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, "ultrathink", logging.NewNopLogger())

	payload := MoleculeScoredPayload{
		SMILES:           "CCO",
		CanonicalSMILES:  "CCO",
		CompositeFitness: 0.87,
		ScoredAt:         time.Now().UTC(),
	}
	err := p.Publish(context.Background(), TopicMoleculeScored,
		"molecule.scored", "CCO", payload)
	require.NoError(t, err)
	require.Len(t, fw.messages, 1)

	msg := fw.messages[0]
	assert.Equal(t, "ultrathink.molecule.scored", msg.Topic)
	assert.Equal(t, []byte("CCO"), msg.Key)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, "molecule.scored", envelope.EventType)
	assert.Equal(t, eventSource, envelope.Source)
	assert.Equal(t, SchemaVersion, envelope.SchemaVersion)

	var decoded MoleculeScoredPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &decoded))
	assert.Equal(t, payload.SMILES, decoded.SMILES)
	assert.Equal(t, payload.CompositeFitness, decoded.CompositeFitness)
}

func TestPublishNoPrefix(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, "", logging.NewNopLogger())
	require.NoError(t, p.Publish(context.Background(),
		TopicGenerationCompleted, "x", "k", struct{}{}))
	assert.Equal(t, TopicGenerationCompleted, fw.messages[0].Topic)
}

func TestPublishWriteFailure(t *testing.T) {
	fw := &fakeWriter{writeErr: stderrors.New("broker down")}
	p := NewProducerWithWriter(fw, "ultrathink", logging.NewNopLogger())

	err := p.Publish(context.Background(), TopicMoleculeScored, "x", "k", struct{}{})
	assert.True(t, errors.IsCode(err, errors.CodePublishError))
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, "", logging.NewNopLogger())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, fw.closed)

	err := p.Publish(context.Background(), TopicMoleculeScored, "x", "k", struct{}{})
	assert.True(t, errors.IsCode(err, errors.CodePublishError))
}
