package sio

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/util/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Decoder turns an MQTT message into events.
type Decoder interface {
	Decode(topic string, payload []byte) ([]core.Event, error)
}

// DecoderFunc is a function that's a Decoder.
type DecoderFunc func(topic string, payload []byte) ([]core.Event, error)

func (f DecoderFunc) Decode(topic string, payload []byte) ([]core.Event, error) {
	return f(topic, payload)
}

// DefaultDecoder reads a JSON object as a Request and anything else
// as a line of console input.
var DefaultDecoder = DecoderFunc(func(topic string, payload []byte) ([]core.Event, error) {
	if bytes.HasPrefix(bytes.TrimSpace(payload), []byte("{")) {
		r, err := ParseRequest(payload)
		if err != nil {
			return nil, err
		}
		return r.Events()
	}
	return ParseLine(string(payload)), nil
})

// MQTTConf is what's needed to make an MQTT client.
type MQTTConf struct {
	Broker    string
	ClientId  string
	Username  string
	Password  string
	KeepAlive time.Duration
	Reconnect bool

	// CAFile, if not empty, adds CA certs to the system's.
	CAFile string

	// CertFile and KeyFile, if not empty, are for client TLS
	// authentication.
	CertFile string
	KeyFile  string

	// Insecure skips broker cert checking.
	Insecure bool
}

// TLSConfig makes the client's TLS configuration.  Returns nil if
// nothing in the MQTTConf needs one.
func (conf *MQTTConf) TLSConfig() (*tls.Config, error) {
	if conf.CAFile == "" && conf.KeyFile == "" && !conf.Insecure {
		return nil, nil
	}

	tlsConf := &tls.Config{
		InsecureSkipVerify: conf.Insecure,
	}

	if conf.CAFile != "" {
		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		certs, err := os.ReadFile(conf.CAFile)
		if err != nil {
			return nil, fmt.Errorf("couldn't read '%s': %w", conf.CAFile, err)
		}
		if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
			return nil, fmt.Errorf("no certs in '%s'", conf.CAFile)
		}
		tlsConf.RootCAs = rootCAs
	}

	if conf.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(conf.CertFile, conf.KeyFile)
		if err != nil {
			return nil, err
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}

	return tlsConf, nil
}

// NewMQTTClient makes (but does not connect) a client.
func NewMQTTClient(conf *MQTTConf) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(conf.Broker)
	opts.SetClientID(conf.ClientId)
	if 0 < conf.KeepAlive {
		opts.SetKeepAlive(conf.KeepAlive)
	}
	opts.SetPingTimeout(10 * time.Second)
	opts.Username = conf.Username
	opts.Password = conf.Password
	opts.AutoReconnect = conf.Reconnect
	opts.CleanSession = true
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Logger().Warnw("MQTT connection lost", "broker", conf.Broker, "error", err)
	}

	tlsConf, err := conf.TLSConfig()
	if err != nil {
		return nil, err
	}
	if tlsConf != nil {
		opts.SetTLSConfig(tlsConf)
	}

	return mqtt.NewClient(opts), nil
}

// MQTT couples the Engine to a broker.  Messages on InputTopics become
// events.  Commands are published to OutputTopic and transitions to
// StateTopic.
type MQTT struct {
	Client mqtt.Client

	// InputTopics is a comma-separated list of "topic[:qos]".
	InputTopics string

	// OutputTopic, if not empty, gets every Command as JSON.
	OutputTopic string

	// StateTopic, if not empty, gets every Transition as JSON.
	StateTopic string

	// DoneTopic, if not empty, is where drivers report finished
	// sounds (see ParseDone).  Reports go to Ending.
	DoneTopic string
	Ending    *Ending

	Decoder Decoder

	// InTimeout bounds how long an incoming message can wait for
	// room in the Events.
	InTimeout time.Duration

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	events *Events
}

// Start connects and subscribes.  Incoming messages are posted to the
// events.
func (c *MQTT) Start(ctx context.Context, events *Events) error {
	ctx = logger.WithName(ctx, "mqtt")
	c.events = events
	if c.Decoder == nil {
		c.Decoder = DefaultDecoder
	}
	if c.InTimeout <= 0 {
		c.InTimeout = 5 * time.Second
	}

	if t := c.Client.Connect(); t.Wait() && t.Error() != nil {
		return t.Error()
	}
	logger.InfoKV(ctx, "connected")

	for _, topic := range strings.Split(c.InputTopics, ",") {
		topic, qos := ParseTopic(topic)
		if topic == "" {
			continue
		}
		handler := func(client mqtt.Client, msg mqtt.Message) {
			c.consume(ctx, msg.Topic(), msg.Payload())
		}
		if t := c.Client.Subscribe(topic, qos, handler); t.Wait() && t.Error() != nil {
			return t.Error()
		}
		logger.InfoKV(ctx, "subscribed", "topic", topic, "qos", qos)
	}

	if c.DoneTopic != "" && c.Ending != nil {
		topic, qos := ParseTopic(c.DoneTopic)
		handler := func(client mqtt.Client, msg mqtt.Message) {
			c.done(ctx, msg.Payload())
		}
		if t := c.Client.Subscribe(topic, qos, handler); t.Wait() && t.Error() != nil {
			return t.Error()
		}
		logger.InfoKV(ctx, "subscribed", "topic", topic, "qos", qos, "for", "done")
	}

	return nil
}

// Stop disconnects.
func (c *MQTT) Stop(ctx context.Context) error {
	if c.Client != nil && c.Client.IsConnected() {
		c.Client.Disconnect(c.Quiesce)
	}
	return nil
}

func (c *MQTT) consume(ctx context.Context, topic string, payload []byte) {
	evs, err := c.Decoder.Decode(topic, payload)
	if err != nil {
		logger.WarnKV(ctx, "undecodable", "topic", topic, "payload", string(payload), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.InTimeout)
	defer cancel()

	for _, ev := range evs {
		if err := c.events.Post(ctx, ev); err != nil {
			logger.WarnKV(ctx, "not posting", "topic", topic, "event", ev, "error", err)
			return
		}
	}
}

func (c *MQTT) done(ctx context.Context, payload []byte) {
	r, err := ParseDone(payload)
	if err != nil {
		logger.WarnKV(ctx, "bad done report", "payload", string(payload), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.InTimeout)
	defer cancel()

	if _, err = c.Ending.Done(ctx, r.State, r.Sound); err != nil {
		logger.WarnKV(ctx, "not posting end", "sound", r.Sound, "error", err)
	}
}

func (c *MQTT) publish(ctx context.Context, topic string, x interface{}) error {
	topic, qos := ParseTopic(topic)
	js, err := json.Marshal(x)
	if err != nil {
		return err
	}
	t := c.Client.Publish(topic, qos, false, js)
	if !t.WaitTimeout(c.InTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return t.Error()
}

// Actuate publishes the command.
func (c *MQTT) Actuate(ctx context.Context, cmd *Command) error {
	if c.OutputTopic == "" {
		return nil
	}
	return c.publish(ctx, c.OutputTopic, cmd)
}

// Observe publishes the transition without waiting for the broker.
func (c *MQTT) Observe(ctx context.Context, t *Transition) {
	if c.StateTopic == "" {
		return
	}
	topic, qos := ParseTopic(c.StateTopic)
	js, err := json.Marshal(t)
	if err != nil {
		logger.WarnKV(ctx, "transition marshal", "error", err)
		return
	}
	c.Client.Publish(topic, qos, true, js)
}

// ParseTopic splits "topic:qos".  The qos defaults to zero.
func ParseTopic(s string) (string, byte) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	var qos byte
	if _, err := fmt.Sscanf(s[i+1:], "%d", &qos); err != nil || 2 < qos {
		return s, 0
	}
	return s[:i], qos
}
