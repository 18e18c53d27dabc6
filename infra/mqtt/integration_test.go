package mqtt

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/simbridge/core/handoff"
	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/infra/logger"
)

// TestBridgeIntegration runs the bridge against a real Mosquitto broker.
func TestBridgeIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883")
	require.NoError(t, err)
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	cfg := Config{Enabled: true, Broker: broker, TopicPrefix: "it", QoS: 1}
	cfg.SetDefaults()
	buf := handoff.New()
	var bridge *Bridge
	for i := 0; i < 5; i++ {
		bridge, err = NewBridge(cfg, buf, logger.NopLogger{})
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, err)
	defer bridge.Close()

	pubOpts, err := NewClientOptions(Config{Broker: broker, ClientID: "it-producer"})
	require.NoError(t, err)
	producer := paho.NewClient(pubOpts)
	tok := producer.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	defer producer.Disconnect(250)

	cmds := make(chan []byte, 1)
	tok = producer.Subscribe(cfg.Topic(TopicCommand), 1, func(_ paho.Client, m paho.Message) {
		cmds <- m.Payload()
	})
	require.True(t, tok.WaitTimeout(5*time.Second))

	tok = producer.Publish(cfg.Topic(TopicGNSS), 1, false, `{"type":"gnss","timestamp":1,"data":{"latitude":1,"longitude":2}}`)
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.Eventually(t, func() bool { return buf.Pending(model.KindGNSS) }, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, bridge.PublishCommand(model.ControlCommand{Throttle: 0.4}))
	select {
	case p := <-cmds:
		require.Contains(t, string(p), `"throttle":0.4`)
	case <-time.After(5 * time.Second):
		t.Fatalf("command not received")
	}
}
