package session

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jackysetiawan6/Android-Homie/internal/latest"
	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
)

// ── Fakes ────────────────────────────────────────────────────────────

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{err: err, done: done}
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type publishRecord struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type subscribeRecord struct {
	topic string
	qos   byte
}

type fakeClient struct {
	mu           sync.Mutex
	opts         *mqtt.ClientOptions
	connectErr   error
	connected    bool
	connectCalls int
	publishes    []publishRecord
	subscribes   []subscribeRecord

	// connectGate, when set, parks Connect until the channel closes,
	// simulating a slow broker handshake.
	connectGate chan struct{}
}

func (f *fakeClient) Connect() mqtt.Token {
	f.mu.Lock()
	f.connectCalls++
	gate := f.connectGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	err := f.connectErr
	if err == nil {
		f.connected = true
	}
	onConnect := f.opts.OnConnect
	f.mu.Unlock()

	if err != nil {
		return newFakeToken(err)
	}
	if onConnect != nil {
		onConnect(f)
	}
	return newFakeToken(nil)
}

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes = append(f.publishes, publishRecord{
		topic: topic, qos: qos, retained: retained, payload: string(payload.([]byte)),
	})
	return newFakeToken(nil)
}

func (f *fakeClient) Subscribe(topic string, qos byte, _ mqtt.MessageHandler) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, subscribeRecord{topic: topic, qos: qos})
	return newFakeToken(nil)
}

func (f *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return newFakeToken(nil)
}

func (f *fakeClient) Unsubscribe(...string) mqtt.Token { return newFakeToken(nil) }
func (f *fakeClient) AddRoute(string, mqtt.MessageHandler) {}
func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
func (f *fakeClient) IsConnectionOpen() bool              { return f.IsConnected() }
func (f *fakeClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func (f *fakeClient) setConnectErr(err error) {
	f.mu.Lock()
	f.connectErr = err
	f.mu.Unlock()
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// ── Helpers ──────────────────────────────────────────────────────────

func newTestManager(t *testing.T, fake *fakeClient, interval time.Duration) (*Manager, *latest.Store) {
	t.Helper()

	lv := latest.New()
	m := New(Options{
		BrokerURL:         "tls://broker.test:8883",
		ClientID:          "homie-test",
		TelemetryTopic:    "homie/room/telemetry",
		ControlTopic:      "homie/room/led",
		ReconnectInterval: interval,
	}, lv, slog.New(slog.NewTextHandler(io.Discard, nil)))

	m.newClient = func(o *mqtt.ClientOptions) mqtt.Client {
		fake.mu.Lock()
		fake.opts = o
		fake.mu.Unlock()
		return fake
	}
	t.Cleanup(m.Close)
	return m, lv
}

func (m *Manager) reconnectLoopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectStarts
}

func (m *Manager) reconnectPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectOn
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// ── Tests ────────────────────────────────────────────────────────────

func TestPublishWhileDisconnectedHasNoBrokerEffect(t *testing.T) {
	fake := &fakeClient{connectErr: errors.New("broker unreachable")}
	m, _ := newTestManager(t, fake, time.Hour)

	m.Connect()

	if err := m.Publish(telemetry.ControlCommand{LEDOverride: telemetry.OverrideOn}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.publishes) != 0 {
		t.Errorf("expected no broker traffic, got %d publishes", len(fake.publishes))
	}
}

func TestPublishWhileConnected(t *testing.T) {
	fake := &fakeClient{}
	m, _ := newTestManager(t, fake, time.Hour)

	m.Connect()
	if m.State() != StateConnected {
		t.Fatalf("state: got %v, want connected", m.State())
	}

	if err := m.Publish(telemetry.ControlCommand{LEDOverride: telemetry.OverrideAuto}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.publishes) != 1 {
		t.Fatalf("publishes: got %d, want 1", len(fake.publishes))
	}
	p := fake.publishes[0]
	if p.topic != "homie/room/led" {
		t.Errorf("topic: got %q", p.topic)
	}
	if p.qos != 1 || p.retained {
		t.Errorf("qos/retained: got %d/%v, want 1/false", p.qos, p.retained)
	}
	if p.payload != `{"LED_Override":-1}` {
		t.Errorf("payload: got %s", p.payload)
	}
}

func TestDisconnectionStartsExactlyOneReconnectLoop(t *testing.T) {
	fake := &fakeClient{connectErr: errors.New("refused")}
	m, _ := newTestManager(t, fake, time.Hour)

	m.Connect()
	if got := m.reconnectLoopCount(); got != 1 {
		t.Fatalf("loops after failed connect: got %d, want 1", got)
	}

	// Repeated loss notifications must not stack more loops.
	m.handleConnectionLost(fake, errors.New("gone"))
	m.handleConnectionLost(fake, errors.New("gone again"))

	if got := m.reconnectLoopCount(); got != 1 {
		t.Errorf("loops after repeated losses: got %d, want 1", got)
	}
	if !m.reconnectPending() {
		t.Error("expected an active reconnect loop")
	}

	// A successful connect cancels the loop; the next loss starts a new one.
	fake.setConnectErr(nil)
	m.handleConnect(fake)
	if m.reconnectPending() {
		t.Error("reconnect loop must be cancelled on connect")
	}

	m.handleConnectionLost(fake, errors.New("lost later"))
	if got := m.reconnectLoopCount(); got != 2 {
		t.Errorf("loops after later loss: got %d, want 2", got)
	}
}

func TestReconnectRetriesAtFixedInterval(t *testing.T) {
	fake := &fakeClient{connectErr: errors.New("refused")}
	m, _ := newTestManager(t, fake, 15*time.Millisecond)

	m.Connect()

	waitFor(t, time.Second, func() bool { return fake.calls() >= 3 })

	// Broker comes back: the next tick reconnects and the loop stops.
	fake.setConnectErr(nil)
	waitFor(t, time.Second, func() bool { return m.State() == StateConnected })
	waitFor(t, time.Second, func() bool { return !m.reconnectPending() })

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.subscribes) == 0 {
		t.Fatal("expected a subscription after reconnect")
	}
	s := fake.subscribes[0]
	if s.topic != "homie/room/telemetry" || s.qos != 0 {
		t.Errorf("subscription: got %+v", s)
	}
}

func TestSubscribesOnConnect(t *testing.T) {
	fake := &fakeClient{}
	m, _ := newTestManager(t, fake, time.Hour)

	m.Connect()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.subscribes) != 1 {
		t.Fatalf("subscribes: got %d, want 1", len(fake.subscribes))
	}
	if fake.subscribes[0].topic != "homie/room/telemetry" {
		t.Errorf("topic: got %q", fake.subscribes[0].topic)
	}
}

func TestMalformedPayloadResetsDisplayedValues(t *testing.T) {
	fake := &fakeClient{}
	m, lv := newTestManager(t, fake, time.Hour)
	m.Connect()

	// Seed a good reading first.
	m.handleMessage(fake, fakeMessage{
		topic:   "homie/room/telemetry",
		payload: []byte(`{"temperature":25.4,"humidity":61.2,"light":412,"led":1}`),
	})

	r, ok := lv.Get()
	if !ok || !r.Valid || r.Temperature != 25.4 {
		t.Fatalf("seed reading: got %+v (ok=%v)", r, ok)
	}
	<-m.Readings()

	// Malformed payload must reset, never crash.
	m.handleMessage(fake, fakeMessage{topic: "homie/room/telemetry", payload: []byte("{broken")})

	r, ok = lv.Get()
	if !ok {
		t.Fatal("expected placeholder in latest store")
	}
	if r.Valid || r.LED != telemetry.LEDUnknown {
		t.Errorf("expected unknown placeholder, got %+v", r)
	}

	select {
	case got := <-m.Readings():
		if got.Valid {
			t.Errorf("expected placeholder on channel, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no placeholder delivered")
	}
}

func TestMessageDeliveryNeverBlocks(t *testing.T) {
	fake := &fakeClient{}
	m, _ := newTestManager(t, fake, time.Hour)

	payload := []byte(`{"temperature":20,"humidity":50,"light":100}`)
	done := make(chan struct{})
	go func() {
		// Far more messages than the channel buffers; nobody reads.
		for i := 0; i < readingsBuffer*4; i++ {
			m.handleMessage(fake, fakeMessage{payload: payload})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("message handler blocked on full UI channel")
	}
}

func TestConnectFinishingAfterCloseDoesNotResurrect(t *testing.T) {
	gate := make(chan struct{})
	fake := &fakeClient{connectGate: gate}
	m, _ := newTestManager(t, fake, time.Hour)

	done := make(chan struct{})
	go func() {
		m.Connect()
		close(done)
	}()

	// The attempt is in flight (parked in the broker handshake) when
	// the session is disposed.
	waitFor(t, time.Second, func() bool { return fake.calls() == 1 })
	m.Close()

	close(gate)
	<-done

	if m.State() == StateConnected {
		t.Error("closed session must not report CONNECTED")
	}
	if fake.IsConnected() {
		t.Error("late connection must be torn down, not left live")
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.subscribes) != 0 {
		t.Errorf("closed session must not subscribe, got %d", len(fake.subscribes))
	}
}

func TestCloseStopsReconnectLoop(t *testing.T) {
	fake := &fakeClient{connectErr: errors.New("refused")}
	m, _ := newTestManager(t, fake, 10*time.Millisecond)

	m.Connect()
	waitFor(t, time.Second, func() bool { return fake.calls() >= 2 })

	m.Close()
	calls := fake.calls()
	time.Sleep(50 * time.Millisecond)
	if fake.calls() != calls {
		t.Error("reconnect loop kept running after Close")
	}

	// Loss after Close must not start a new loop.
	m.handleConnectionLost(fake, errors.New("late loss"))
	if m.reconnectPending() {
		t.Error("closed session must not schedule reconnects")
	}
}
