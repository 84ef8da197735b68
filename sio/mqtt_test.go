package sio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Comcast/fernspiel/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	for in, want := range map[string]struct {
		topic string
		qos   byte
	}{
		"phone/in":    {"phone/in", 0},
		" phone/in:1": {"phone/in", 1},
		"phone/in:2":  {"phone/in", 2},
		"phone/in:9":  {"phone/in:9", 0},
		"phone:in":    {"phone:in", 0},
	} {
		topic, qos := ParseTopic(in)
		assert.Equal(t, want.topic, topic, in)
		assert.Equal(t, want.qos, qos, in)
	}
}

func TestDefaultDecoder(t *testing.T) {
	evs, err := DefaultDecoder.Decode("phone/in", []byte("p1"))
	assert.NoError(t, err)
	assert.Equal(t, core.Symbols(core.PickUp(), core.MustDial(1)), evs)

	evs, err = DefaultDecoder.Decode("phone/in", []byte(` {"invoke":"reset"}`))
	assert.NoError(t, err)
	assert.Equal(t, []core.Event{core.Reset{}}, evs)

	_, err = DefaultDecoder.Decode("phone/in", []byte(`{"invoke":"nope"}`))
	assert.Error(t, err)
}

func TestMQTTConsume(t *testing.T) {
	es := NewEvents(4)
	c := &MQTT{
		Decoder:   DefaultDecoder,
		InTimeout: 20 * time.Millisecond,
		events:    es,
	}
	ctx := context.Background()

	c.consume(ctx, "phone/in", []byte("h"))
	assert.Equal(t, core.Symbols(core.HangUp()), drain(es))

	c.Decoder = DecoderFunc(func(topic string, payload []byte) ([]core.Event, error) {
		return nil, errors.New("unreadable")
	})
	c.consume(ctx, "phone/in", []byte("h"))
	assert.Empty(t, drain(es))

	// A stalled engine makes consume give up after InTimeout.
	c.Decoder = DefaultDecoder
	c.consume(ctx, "phone/in", []byte("1111111"))
	assert.Len(t, drain(es), 4)
}

func TestMQTTDone(t *testing.T) {
	es := NewEvents(4)
	c := &MQTT{
		InTimeout: 20 * time.Millisecond,
		Ending:    NewEnding(es),
		events:    es,
	}
	ctx := context.Background()

	c.Ending.Observe(ctx, &Transition{To: "goodbye", Commands: []*Command{{Op: OpPlay, State: "goodbye", Sound: "bye"}}})

	c.done(ctx, []byte(""))
	c.done(ctx, []byte("hum"))
	assert.Empty(t, drain(es))

	c.done(ctx, []byte(`{"state":"goodbye","sound":"bye"}`))
	assert.Equal(t, core.Symbols(core.End()), drain(es))
}

func TestMQTTTLSConfig(t *testing.T) {
	tlsConf, err := (&MQTTConf{Broker: "tcp://localhost:1883"}).TLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tlsConf)

	tlsConf, err = (&MQTTConf{Insecure: true}).TLSConfig()
	require.NoError(t, err)
	require.NotNil(t, tlsConf)
	assert.True(t, tlsConf.InsecureSkipVerify)

	_, err = (&MQTTConf{CAFile: "missing.pem"}).TLSConfig()
	assert.Error(t, err)

	_, err = NewMQTTClient(&MQTTConf{KeyFile: "missing.key", CertFile: "missing.crt"})
	assert.Error(t, err)
}
