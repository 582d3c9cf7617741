package mqtt

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	clientID       = "nextgarage-controller"
	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second

	// commandQueueSize bounds inbound commands waiting for the loop's
	// next command-poll step.
	commandQueueSize = 16

	// offlineBufferSize bounds publishes held across a broker outage.
	offlineBufferSize = 64
)

// RealClient talks to an actual MQTT broker. While disconnected,
// publishes are parked in a ring buffer and replayed on reconnect;
// inbound commands are parsed on paho's goroutine and queued on a
// channel the control loop drains synchronously.
type RealClient struct {
	client   paho.Client
	commands chan Command

	mu      sync.Mutex
	pending *ringBuffer
}

// NewRealClient connects to the broker, installs an OFFLINE last-will
// on the system topic, and subscribes to the command topics.
func NewRealClient(broker string) (*RealClient, error) {
	c := &RealClient{
		commands: make(chan Command, commandQueueSize),
		pending:  newRingBuffer(offlineBufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, "OFFLINE", 1, true).
		SetOnConnectHandler(c.onConnect)

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

// onConnect runs on every (re)connect: announce ONLINE, resubscribe,
// and flush anything buffered during the outage.
func (c *RealClient) onConnect(client paho.Client) {
	client.Publish(TopicSystem, 1, true, "ONLINE")

	for _, filter := range []string{"parking/cmd/#", "parking/cfg/#"} {
		if token := client.Subscribe(filter, 1, c.onMessage); token.WaitTimeout(publishTimeout) && token.Error() != nil {
			log.Printf("mqtt subscribe %s: %v", filter, token.Error())
		}
	}

	c.mu.Lock()
	msgs := c.pending.drainAll()
	c.mu.Unlock()
	if len(msgs) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(msgs))
	}
	for _, m := range msgs {
		client.Publish(m.topic, 0, m.retained, m.payload)
	}
}

// onMessage parses one inbound message and queues the command. Runs on
// paho's goroutine; the loop consumes from the channel on its own.
func (c *RealClient) onMessage(_ paho.Client, msg paho.Message) {
	cmd, err := ParseCommand(msg.Topic(), string(msg.Payload()))
	if err != nil {
		if err != ErrConfirmEcho {
			log.Printf("mqtt: discarding message on %s: %v", msg.Topic(), err)
		}
		return
	}
	select {
	case c.commands <- cmd:
	default:
		log.Printf("mqtt: command queue full, dropping %s", msg.Topic())
	}
}

// Commands returns the inbound command queue.
func (c *RealClient) Commands() <-chan Command {
	return c.commands
}

// IsConnected reports the broker connection state.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// publish sends one message, or buffers it while disconnected.
func (c *RealClient) publish(topic, payload string, retained bool) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		c.pending.push(bufferedMsg{topic: topic, payload: payload, retained: retained})
		c.mu.Unlock()
		return nil
	}

	token := c.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishTelemetry fans the snapshot out to the per-value topics.
// Retained topics keep the dashboard correct across its own restarts.
func (c *RealClient) PublishTelemetry(t Telemetry) error {
	var firstErr error
	pub := func(topic, payload string, retained bool) {
		if err := c.publish(topic, payload, retained); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	pub(TopicGate, t.GateState, true)
	pub(TopicSpot, SpotPayload(t.SpotOccupied), true)
	pub(TopicDistance, DistancePayload(t.DistanceCm), false)
	pub(TopicGasLevel, strconv.Itoa(t.GasLevel), false)
	pub(TopicGasAlarm, GasAlarmPayload(t.GasAlarm), true)
	pub(TopicLight, strconv.FormatFloat(t.Lux, 'f', 0, 64), false)
	return firstErr
}

func (c *RealClient) PublishSpot(occupied bool) error {
	return c.publish(TopicSpot, SpotPayload(occupied), true)
}

func (c *RealClient) PublishGasAlarm(active bool) error {
	return c.publish(TopicGasAlarm, GasAlarmPayload(active), true)
}

func (c *RealClient) PublishConfigValue(param, value string) error {
	return c.publish(TopicCfgPrefix+param, value, true)
}

func (c *RealClient) ConfirmThreshold(param, value string) error {
	return c.publish(TopicCfgPrefix+param+"/confirm", value, true)
}

// Close announces OFFLINE and disconnects.
func (c *RealClient) Close() error {
	if c.client.IsConnectionOpen() {
		token := c.client.Publish(TopicSystem, 1, true, "OFFLINE")
		token.WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(1000)
	return nil
}
