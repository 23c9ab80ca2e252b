// Package session maintains exactly one live MQTT broker connection
// with automatic recovery. It subscribes to the fixed telemetry topic,
// decodes inbound payloads, hands readings to the UI layer, and
// publishes LED override commands while connected.
//
// Recovery is a fixed-interval unconditional retry: the paho client's
// own auto-reconnect and connect-retry are disabled, and a single
// reconnect loop re-invokes the connect attempt every interval until
// the connection comes back. Commands published while disconnected are
// dropped, not queued.
package session

import (
	"crypto/tls"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jackysetiawan6/Android-Homie/internal/latest"
	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
)

// State is the connection state of the session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the display form of the connection state.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateConnecting:
		return "CONNECTING"
	default:
		return "DISCONNECTED"
	}
}

const (
	defaultReconnectInterval = 5 * time.Second
	publishTimeout           = 5 * time.Second
	readingsBuffer           = 16

	telemetryQoS = 0 // at-most-once; the next sample supersedes a lost one
	controlQoS   = 1 // at-least-once for actuator commands
)

// Options configures a session Manager.
type Options struct {
	// BrokerURL is the full broker address, e.g. "tls://broker.example:8883".
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// TelemetryTopic receives sensor payloads; ControlTopic receives
	// outbound LED override commands.
	TelemetryTopic string
	ControlTopic   string

	// ReconnectInterval is the fixed retry period (default 5s).
	ReconnectInterval time.Duration

	// TLS is the pinned mutual-TLS bundle from NewTLSConfig. Required
	// for tls:// brokers.
	TLS *tls.Config

	KeepAlive   time.Duration
	PingTimeout time.Duration
}

// Manager owns one MQTT connection, one telemetry subscription, and at
// most one reconnect loop.
type Manager struct {
	opts   Options
	logger *slog.Logger
	latest *latest.Store

	// newClient is swapped out by tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu              sync.Mutex
	client          mqtt.Client
	state           State
	closed          bool
	reconnectOn     bool
	reconnectStop   chan struct{}
	reconnectStarts int

	readings chan telemetry.Reading
}

// New creates a Manager but does not connect. Call [Manager.Connect]
// to establish the session.
func New(opts Options, lv *latest.Store, logger *slog.Logger) *Manager {
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = defaultReconnectInterval
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 30 * time.Second
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opts:      opts,
		logger:    logger,
		latest:    lv,
		newClient: mqtt.NewClient,
		readings:  make(chan telemetry.Reading, readingsBuffer),
	}
}

// Readings returns the channel of decoded telemetry samples. Invalid
// readings on the channel are unknown placeholders that reset the
// displayed values.
func (m *Manager) Readings() <-chan telemetry.Reading {
	return m.readings
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes the broker session. A failed attempt is not an
// error to the caller: the reconnect loop takes over and keeps
// retrying at the fixed interval.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.client == nil {
		m.client = m.newClient(m.clientOptions())
	}
	m.mu.Unlock()

	m.tryConnect()
}

func (m *Manager) clientOptions() *mqtt.ClientOptions {
	o := mqtt.NewClientOptions().
		AddBroker(m.opts.BrokerURL).
		SetClientID(m.opts.ClientID).
		SetUsername(m.opts.Username).
		SetPassword(m.opts.Password).
		SetKeepAlive(m.opts.KeepAlive).
		SetPingTimeout(m.opts.PingTimeout).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOnConnectHandler(m.handleConnect).
		SetConnectionLostHandler(m.handleConnectionLost)
	if m.opts.TLS != nil {
		o.SetTLSConfig(m.opts.TLS)
	}
	return o
}

// tryConnect performs one connect attempt. It is a no-op while a
// connection is already live or another attempt is in flight.
func (m *Manager) tryConnect() {
	m.mu.Lock()
	if m.closed || m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	client := m.client
	m.mu.Unlock()

	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		m.logger.Warn("broker connect failed", "broker", m.opts.BrokerURL, "error", token.Error())

		m.mu.Lock()
		if m.state == StateConnecting {
			m.state = StateDisconnected
		}
		m.scheduleReconnectLocked()
		m.mu.Unlock()
	}
}

// handleConnect runs on every successful (re-)connect: cancel the
// pending reconnect loop and re-establish the telemetry subscription.
// A connect attempt that completes after Close tears itself down
// instead of resurrecting the session.
func (m *Manager) handleConnect(client mqtt.Client) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Debug("late connect after close, disconnecting")
		client.Disconnect(250)
		return
	}
	m.state = StateConnected
	m.cancelReconnectLocked()
	m.mu.Unlock()

	m.logger.Info("connected to broker", "broker", m.opts.BrokerURL)

	token := client.Subscribe(m.opts.TelemetryTopic, telemetryQoS, m.handleMessage)
	go func() {
		if token.Wait() && token.Error() != nil {
			m.logger.Warn("subscribe failed", "topic", m.opts.TelemetryTopic, "error", token.Error())
		} else {
			m.logger.Debug("subscribed", "topic", m.opts.TelemetryTopic)
		}
	}()
}

func (m *Manager) handleConnectionLost(_ mqtt.Client, err error) {
	m.logger.Warn("broker connection lost", "error", err)

	m.mu.Lock()
	m.state = StateDisconnected
	m.scheduleReconnectLocked()
	m.mu.Unlock()
}

// scheduleReconnectLocked starts the reconnect loop unless one is
// already running. Must be called with m.mu held.
func (m *Manager) scheduleReconnectLocked() {
	if m.reconnectOn || m.closed {
		return
	}
	m.reconnectOn = true
	m.reconnectStarts++
	stop := make(chan struct{})
	m.reconnectStop = stop

	m.logger.Info("reconnect loop started", "interval", m.opts.ReconnectInterval.String())
	go m.reconnectLoop(stop)
}

func (m *Manager) reconnectLoop(stop chan struct{}) {
	ticker := time.NewTicker(m.opts.ReconnectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.tryConnect()
		}
	}
}

// cancelReconnectLocked stops the pending reconnect loop, if any.
// Must be called with m.mu held.
func (m *Manager) cancelReconnectLocked() {
	if !m.reconnectOn {
		return
	}
	close(m.reconnectStop)
	m.reconnectOn = false
	m.reconnectStop = nil
}

// handleMessage decodes an inbound payload. Decode failures are
// swallowed: the unknown placeholder is delivered instead so the UI
// degrades to "no data" rather than crashing or erroring.
func (m *Manager) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	now := time.Now()

	reading, err := telemetry.Decode(msg.Payload(), now)
	if err != nil {
		m.logger.Debug("undecodable payload, resetting display",
			"topic", msg.Topic(), "payload_size", len(msg.Payload()), "error", err)
		if m.latest != nil {
			m.latest.Reset(now)
		}
		m.deliver(telemetry.Unknown(now))
		return
	}

	if m.latest != nil {
		m.latest.Set(reading)
	}
	m.deliver(reading)
}

// deliver hands a reading to the UI channel without ever blocking the
// message callback. When the UI lags, the sample is dropped; the
// latest-value cache still reflects the newest state.
func (m *Manager) deliver(r telemetry.Reading) {
	select {
	case m.readings <- r:
	default:
		m.logger.Debug("reading dropped, UI channel full")
	}
}

// Publish sends an LED override command while connected. Commands
// issued while disconnected are silently dropped, with no queueing and
// no error to the caller.
func (m *Manager) Publish(cmd telemetry.ControlCommand) error {
	m.mu.Lock()
	connected := m.state == StateConnected
	client := m.client
	m.mu.Unlock()

	if !connected || client == nil {
		m.logger.Debug("command dropped while disconnected", "mode", cmd.LEDOverride.String())
		return nil
	}

	payload, err := cmd.Marshal()
	if err != nil {
		return err
	}

	token := client.Publish(m.opts.ControlTopic, controlQoS, false, payload)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		m.logger.Warn("command publish failed", "topic", m.opts.ControlTopic, "error", token.Error())
		return nil
	}

	m.logger.Debug("command published", "topic", m.opts.ControlTopic, "mode", cmd.LEDOverride.String())
	return nil
}

// Close disposes the session: the reconnect loop is stopped and the
// connection, if live, is torn down.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cancelReconnectLocked()
	client := m.client
	connected := m.state == StateConnected
	m.state = StateDisconnected
	m.mu.Unlock()

	if client != nil && connected {
		client.Disconnect(250)
	}
	m.logger.Info("session closed")
}
