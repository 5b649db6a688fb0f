package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/nhonchu/fridge-truck/internal/logger"
	"github.com/nhonchu/fridge-truck/internal/position"
	"github.com/nhonchu/fridge-truck/internal/sim"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second

	// outboxCapacity bounds the messages held while the broker is
	// unreachable; oldest are dropped beyond this.
	outboxCapacity = 64

	// inboundCapacity bounds pending cloud-initiated messages waiting for
	// the run loop.
	inboundCapacity = 16
)

// Client publishes to and subscribes from an actual MQTT broker.
type Client struct {
	client  paho.Client
	topics  Topics
	log     *logger.Logger
	inbound chan Inbound

	mu  sync.Mutex
	box *outbox
}

// NewClient connects to the broker and subscribes to the setting-write and
// command topics. A retained OFFLINE will is registered so the cloud sees
// unclean disconnects.
func NewClient(broker, truckID string, log *logger.Logger) (*Client, error) {
	c := &Client{
		topics:  TopicsFor(truckID),
		log:     log,
		inbound: make(chan Inbound, inboundCapacity),
		box:     newOutbox(outboxCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("fridge-truck-" + truckID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetBinaryWill(c.topics.System, will, 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("broker connection lost", "err", err)
		})

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

// onConnect runs on every (re)connect: subscriptions are not persistent
// with a clean session, so re-subscribe, then replay buffered publishes.
func (c *Client) onConnect(pc paho.Client) {
	if token := pc.Subscribe(c.topics.SettingsSet, 1, c.onSettingWrite); token.Wait() && token.Error() != nil {
		c.log.Errorw("subscribe failed", "topic", c.topics.SettingsSet, "err", token.Error())
	}
	if token := pc.Subscribe(c.topics.Command, 1, c.onCommand); token.Wait() && token.Error() != nil {
		c.log.Errorw("subscribe failed", "topic", c.topics.Command, "err", token.Error())
	}

	c.mu.Lock()
	msgs := c.box.drain()
	dropped := c.box.droppedCount()
	c.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	c.log.Infow("replaying buffered messages", "count", len(msgs), "dropped_total", dropped)
	for _, m := range msgs {
		token := pc.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
			c.log.Warnw("replay publish failed", "topic", m.topic, "err", token.Error())
		}
	}
}

// onSettingWrite runs on the paho router goroutine; it hands the message
// to the run loop and never mutates state itself.
func (c *Client) onSettingWrite(_ paho.Client, msg paho.Message) {
	var m settingWriteMsg
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		c.log.Warnw("malformed setting write", "payload", string(msg.Payload()), "err", err)
		return
	}
	c.deliver(Inbound{Kind: KindSettingWrite, Name: m.Field, Value: m.Value, Time: time.Now()})
}

func (c *Client) onCommand(_ paho.Client, msg paho.Message) {
	var m commandMsg
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		c.log.Warnw("malformed command", "payload", string(msg.Payload()), "err", err)
		return
	}
	c.deliver(Inbound{Kind: KindCommand, Name: m.Command, Time: time.Now()})
}

func (c *Client) deliver(in Inbound) {
	select {
	case c.inbound <- in:
	default:
		c.log.Warnw("inbound queue full, dropping message", "kind", in.Kind, "name", in.Name)
	}
}

// Inbound delivers cloud-initiated setting writes and commands.
func (c *Client) Inbound() <-chan Inbound {
	return c.inbound
}

// publish sends one message. While the broker is unreachable the message is
// held in the outbox for replay on reconnect; callers that decline buffering
// get ErrNotConnected instead and must handle delivery themselves.
func (c *Client) publish(topic string, qos byte, retained bool, payload []byte, buffer bool) error {
	if !c.client.IsConnected() {
		if !buffer {
			return ErrNotConnected
		}
		c.mu.Lock()
		c.box.add(outMsg{topic: topic, qos: qos, retained: retained, payload: payload})
		pending := c.box.size()
		c.mu.Unlock()
		c.log.Debugw("broker unreachable, buffered message", "topic", topic, "pending", pending)
		return nil
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishState sends the fan/door state. QoS 0: the next push supersedes it.
func (c *Client) PublishState(st sim.State, now time.Time) error {
	payload, err := FormatState(st, now)
	if err != nil {
		return fmt.Errorf("format state: %w", err)
	}
	return c.publish(c.topics.State, 0, false, payload, true)
}

// PublishSeries sends a time-series batch. QoS 1: batches must arrive.
// A batch is never held in the drop-oldest outbox; while the broker is down
// this returns ErrNotConnected so the caller spools the batch durably.
func (c *Client) PublishSeries(s Series) error {
	payload, err := FormatSeries(s)
	if err != nil {
		return fmt.Errorf("format series: %w", err)
	}
	return c.publish(c.topics.Series, 1, false, payload, false)
}

// PublishPosition sends a position fix.
func (c *Client) PublishPosition(fix position.Fix) error {
	payload, err := FormatPosition(fix)
	if err != nil {
		return fmt.Errorf("format position: %w", err)
	}
	return c.publish(c.topics.Position, 0, false, payload, true)
}

// PublishSettings sends the retained settings echo.
func (c *Client) PublishSettings(set sim.Settings) error {
	payload, err := FormatSettings(set)
	if err != nil {
		return fmt.Errorf("format settings: %w", err)
	}
	return c.publish(c.topics.Settings, 1, true, payload, true)
}

// PublishSystem sends a lifecycle event. QoS 1 so shutdowns are delivered.
func (c *Client) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return c.publish(c.topics.System, 1, event.Retained, payload, true)
}

// PublishCommandAck reports a command execution result.
func (c *Client) PublishCommandAck(ack CommandAck) error {
	payload, err := FormatCommandAck(ack)
	if err != nil {
		return fmt.Errorf("format command ack: %w", err)
	}
	return c.publish(c.topics.CommandAck, 1, false, payload, true)
}

// IsConnected reports whether the broker connection is active.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	c.client.Disconnect(1000) // milliseconds to flush in-flight work
	return nil
}
