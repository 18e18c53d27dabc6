// Package mqtt exposes the pipeline as a dataflow node on an MQTT broker.
// GNSS and speed records published on <prefix>/gnss_data and <prefix>/speed
// are fed into the handoff buffer, and every command the control loop emits
// is mirrored on <prefix>/control_cmd.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/simbridge/core/events"
	"github.com/kilianp07/simbridge/core/logger"
	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/core/monitoring"
	"github.com/kilianp07/simbridge/infra/codec"
	"github.com/kilianp07/simbridge/internal/eventbus"
)

// ErrNotConnected is returned when publishing on a closed bridge.
var ErrNotConnected = errors.New("mqtt bridge not connected")

// Sink receives decoded samples.
type Sink interface {
	Set(model.SensorSample)
}

// Stats counts bridge traffic.
type Stats struct {
	Received  uint64 `json:"received"`
	Dropped   uint64 `json:"dropped"`
	Published uint64 `json:"published"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Bridge connects the pipeline to the broker.
type Bridge struct {
	cfg   Config
	sink  Sink
	log   logger.Logger
	codec codec.Codec

	mu  sync.Mutex
	cli pahoClient

	received  atomic.Uint64
	dropped   atomic.Uint64
	published atomic.Uint64
}

// NewBridge connects to the broker. Input topics are (re)subscribed on
// every connect so that an auto-reconnect restores them.
func NewBridge(cfg Config, sink Sink, log logger.Logger) (*Bridge, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	b := &Bridge{cfg: cfg, sink: sink, log: log, codec: codec.JSON{}}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		b.subscribe(c)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(cfg.connectTimeout()) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	b.mu.Lock()
	b.cli = c
	b.mu.Unlock()
	return b, nil
}

func (b *Bridge) subscribe(c pahoClient) {
	inputs := map[string]model.SensorKind{
		b.cfg.Topic(TopicGNSS):  model.KindGNSS,
		b.cfg.Topic(TopicSpeed): model.KindSpeed,
	}
	for topic, kind := range inputs {
		if token := c.Subscribe(topic, b.cfg.QoS, b.handler(kind)); token.Wait() && token.Error() != nil {
			b.log.Errorf("subscribe %s: %v", topic, token.Error())
			continue
		}
		b.log.Debugf("subscribed to %s", topic)
	}
}

func (b *Bridge) handler(kind model.SensorKind) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		b.received.Add(1)
		s, err := codec.DecodeSample(b.codec, msg.Payload())
		if err != nil {
			b.dropped.Add(1)
			b.log.Warnf("drop message on %s: %v", msg.Topic(), err)
			return
		}
		if s.Kind() != kind {
			b.dropped.Add(1)
			b.log.Warnf("drop %s record on %s", s.Kind(), msg.Topic())
			return
		}
		b.sink.Set(s)
	}
}

// PublishCommand mirrors cmd on the control_cmd topic.
func (b *Bridge) PublishCommand(cmd model.ControlCommand) error {
	b.mu.Lock()
	c := b.cli
	b.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	payload, err := codec.EncodeCommand(b.codec, cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	token := c.Publish(b.cfg.Topic(TopicCommand), b.cfg.QoS, false, payload)
	if !token.WaitTimeout(b.cfg.connectTimeout()) {
		return fmt.Errorf("publish %s: timeout", b.cfg.Topic(TopicCommand))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", b.cfg.Topic(TopicCommand), err)
	}
	b.published.Add(1)
	return nil
}

// Forward publishes every CommandEvent seen on bus until ctx is done or the
// bus closes. The returned channel is closed when forwarding stops.
func (b *Bridge) Forward(ctx context.Context, bus eventbus.EventBus[events.Event]) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				ce, isCmd := ev.(events.CommandEvent)
				if !isCmd {
					continue
				}
				if err := b.PublishCommand(ce.Command); err != nil {
					b.log.Warnf("mirror command: %v", err)
					if !errors.Is(err, ErrNotConnected) {
						monitoring.CaptureException(err, map[string]string{"module": "mqtt", "broker": b.cfg.Broker})
					}
				}
			}
		}
	}()
	return done
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Received:  b.received.Load(),
		Dropped:   b.dropped.Load(),
		Published: b.published.Load(),
	}
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.mu.Lock()
	c := b.cli
	b.cli = nil
	b.mu.Unlock()
	if c != nil && c.IsConnected() {
		c.Disconnect(250)
	}
}
