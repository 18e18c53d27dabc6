package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/simbridge/core/events"
	"github.com/kilianp07/simbridge/core/handoff"
	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/infra/logger"
	"github.com/kilianp07/simbridge/internal/eventbus"
)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// mockClient implements paho.Client for tests
type mockClient struct {
	opts *paho.ClientOptions

	mu          sync.Mutex
	handlers    map[string]paho.MessageHandler
	subQoS      map[string]byte
	published   []published
	publishErrs []error
	connectErr  error
	disconnects int
}

func newMock(t *testing.T) *mockClient {
	mc := &mockClient{handlers: map[string]paho.MessageHandler{}, subQoS: map[string]byte{}}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
	return mc
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {
	m.mu.Lock()
	m.disconnects++
	m.mu.Unlock()
}
func (m *mockClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, _ := payload.([]byte)
	m.published = append(m.published, published{topic, qos, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, cb paho.MessageHandler) paho.Token {
	m.mu.Lock()
	m.handlers[topic] = cb
	m.subQoS[topic] = qos
	m.mu.Unlock()
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

func (m *mockClient) deliver(topic string, payload string) {
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	h(m, mockMessage{topic: topic, p: []byte(payload)})
}

func (m *mockClient) sent() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.published...)
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct {
	topic string
	p     []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}

func testConfig() Config {
	cfg := Config{Enabled: true, Broker: "tcp://localhost:1883", ClientID: "id", TopicPrefix: "sim", QoS: 1}
	cfg.SetDefaults()
	return cfg
}

func TestBridgeSubscribesOnConnect(t *testing.T) {
	mc := newMock(t)
	_, err := NewBridge(testConfig(), handoff.New(), logger.NopLogger{})
	require.NoError(t, err)

	assert.Len(t, mc.handlers, 2)
	assert.Equal(t, byte(1), mc.subQoS["sim/gnss_data"])
	assert.Equal(t, byte(1), mc.subQoS["sim/speed"])
}

func TestBridgeConnectError(t *testing.T) {
	mc := newMock(t)
	mc.connectErr = fmt.Errorf("refused")
	_, err := NewBridge(testConfig(), handoff.New(), logger.NopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestBridgeFeedsBuffer(t *testing.T) {
	mc := newMock(t)
	buf := handoff.New()
	b, err := NewBridge(testConfig(), buf, logger.NopLogger{})
	require.NoError(t, err)

	mc.deliver("sim/gnss_data", `{"type":"gnss","timestamp":1.5,"data":{"latitude":2,"longitude":3}}`)
	mc.deliver("sim/speed", `{"type":"speed","timestamp":1.6,"data":{"speed":4.2}}`)

	s, ok := buf.Take(model.KindGNSS)
	require.True(t, ok)
	g := s.(model.GNSS)
	assert.Equal(t, model.Waypoint{X: 3, Y: 2}, g.Position())

	s, ok = buf.Take(model.KindSpeed)
	require.True(t, ok)
	assert.InDelta(t, 4.2, s.(model.Speed).MetersPerSecond, 1e-9)

	assert.Equal(t, Stats{Received: 2}, b.Stats())
}

func TestBridgeDropsBadMessages(t *testing.T) {
	mc := newMock(t)
	buf := handoff.New()
	b, err := NewBridge(testConfig(), buf, logger.NopLogger{})
	require.NoError(t, err)

	mc.deliver("sim/gnss_data", `not json`)
	// speed record on the gnss topic
	mc.deliver("sim/gnss_data", `{"type":"speed","data":{"speed":1}}`)

	assert.False(t, buf.Pending(model.KindGNSS))
	assert.False(t, buf.Pending(model.KindSpeed))
	assert.Equal(t, uint64(2), b.Stats().Dropped)
}

func TestPublishCommand(t *testing.T) {
	mc := newMock(t)
	b, err := NewBridge(testConfig(), handoff.New(), logger.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, b.PublishCommand(model.ControlCommand{Steer: 0.25, Throttle: 0.4, Timestamp: 9}))
	sent := mc.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "sim/control_cmd", sent[0].topic)
	assert.Equal(t, byte(1), sent[0].qos)

	var got model.ControlCommand
	require.NoError(t, json.Unmarshal(sent[0].payload, &got))
	assert.Equal(t, 0.25, got.Steer)
	assert.Equal(t, 0.4, got.Throttle)
	assert.Equal(t, uint64(1), b.Stats().Published)
}

func TestPublishCommandError(t *testing.T) {
	mc := newMock(t)
	mc.publishErrs = []error{fmt.Errorf("net fail")}
	b, err := NewBridge(testConfig(), handoff.New(), logger.NopLogger{})
	require.NoError(t, err)

	require.Error(t, b.PublishCommand(model.StopCommand(0)))
	assert.Zero(t, b.Stats().Published)
}

func TestForwardMirrorsCommands(t *testing.T) {
	mc := newMock(t)
	b, err := NewBridge(testConfig(), handoff.New(), logger.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.New[events.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	done := b.Forward(ctx, bus)

	bus.Publish(events.SensorEvent{Kind: model.KindLiDAR, Bytes: 10})
	bus.Publish(events.CommandEvent{Command: model.ControlCommand{Throttle: 0.4}, Sent: true})

	require.Eventually(t, func() bool { return len(mc.sent()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "sim/control_cmd", mc.sent()[0].topic)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("forwarder did not stop")
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := newMock(t)
	cfg := testConfig()
	cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS = "lwt", "bye", 1
	b, err := NewBridge(cfg, handoff.New(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("bridge: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
	b.Close()
	if len(mc.sent()) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestCloseStopsPublishing(t *testing.T) {
	mc := newMock(t)
	b, err := NewBridge(testConfig(), handoff.New(), logger.NopLogger{})
	require.NoError(t, err)

	b.Close()
	b.Close()
	assert.Equal(t, 1, mc.disconnects)
	assert.ErrorIs(t, b.PublishCommand(model.StopCommand(0)), ErrNotConnected)
}
