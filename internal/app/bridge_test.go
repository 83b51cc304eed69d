package app

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/devicemotion/internal/motion"
	"github.com/relabs-tech/devicemotion/internal/platform"
	"github.com/relabs-tech/devicemotion/internal/wshost"
)

const androidChromeUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.43 Mobile Safari/537.36"

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) Publish(topic string, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, retained: retained, payload: append([]byte(nil), payload...)})
	return nil
}

func (f *fakePublisher) byTopic(pred func(string) bool) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, m := range f.msgs {
		if pred(m.topic) {
			out = append(out, m)
		}
	}
	return out
}

func startBridge(t *testing.T, decimation int) (*fakePublisher, string) {
	t.Helper()
	pub := &fakePublisher{}
	b := NewBridge(BridgeConfig{
		TopicMotion:     "dm/sample",
		TopicPermission: "dm/permission",
		ProbeTimeout:    500 * time.Millisecond,
		EmitDecimation:  decimation,
	}, pub)
	srv := httptest.NewServer(b.Routes(""))
	t.Cleanup(srv.Close)
	return pub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/motion"
}

// page is the client side of a bridged browser tab.
type page struct {
	conn *websocket.Conn
	in   chan StatusMessage
}

func openPage(t *testing.T, url string, hello wshost.Message) *page {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hello.Type = wshost.TypeHello
	require.NoError(t, conn.WriteJSON(hello))

	p := &page{conn: conn, in: make(chan StatusMessage, 4)}
	go func() {
		for {
			var s StatusMessage
			if err := conn.ReadJSON(&s); err != nil {
				close(p.in)
				return
			}
			p.in <- s
		}
	}()
	return p
}

func (p *page) fire(t *testing.T, raw motion.RawSample) {
	t.Helper()
	require.NoError(t, p.conn.WriteJSON(wshost.Message{Type: wshost.TypeMotion, Sample: &raw}))
}

// fireUntilStatus keeps firing raw until the bridge reports the permission.
func (p *page) fireUntilStatus(t *testing.T, raw motion.RawSample) StatusMessage {
	t.Helper()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s, ok := <-p.in:
			require.True(t, ok, "connection closed before status")
			return s
		case <-ticker.C:
			p.fire(t, raw)
		case <-deadline:
			t.Fatal("no status from bridge")
		}
	}
}

func TestBridge_PublishesNormalizedSamples(t *testing.T) {
	pub, url := startBridge(t, 1)
	p := openPage(t, url, wshost.Message{UserAgent: androidChromeUA, Protocol: "https:", HasDeviceMotion: true})

	raw := motion.RawSample{
		AccelerationIncludingGravity: motion.NewVector(1, 2, 3),
		RotationRate:                 motion.NewRotation(10, 20, 30),
		Interval:                     16,
	}
	status := p.fireUntilStatus(t, raw)

	assert.Equal(t, "status", status.Type)
	assert.Equal(t, motion.Granted, status.Permission)
	assert.Equal(t, platform.Android, status.Platform.OS)
	assert.Equal(t, motion.FieldAvailability{AccelerationIncludingGravity: true, RotationRate: true}, status.Availability)

	statusMsgs := pub.byTopic(func(topic string) bool { return strings.HasPrefix(topic, "dm/permission/") })
	require.Len(t, statusMsgs, 1)
	assert.True(t, statusMsgs[0].retained)
	assert.Equal(t, "dm/permission/"+status.Client, statusMsgs[0].topic)

	sampleTopic := "dm/sample/" + status.Client
	require.Eventually(t, func() bool {
		_ = p.conn.WriteJSON(wshost.Message{Type: wshost.TypeMotion, Sample: &raw})
		return len(pub.byTopic(func(topic string) bool { return topic == sampleTopic })) > 0
	}, 3*time.Second, 20*time.Millisecond)

	samples := pub.byTopic(func(topic string) bool { return topic == sampleTopic })
	var msg SampleMessage
	require.NoError(t, json.Unmarshal(samples[0].payload, &msg))
	assert.Equal(t, status.Client, msg.Client)
	require.NotNil(t, msg.AccelerationIncludingGravity)
	assert.Equal(t, motion.Axes{X: 1, Y: 2, Z: 3}, *msg.AccelerationIncludingGravity)
	require.NotNil(t, msg.RotationRate)
	assert.Equal(t, motion.Rates{Alpha: 30, Beta: 10, Gamma: 20}, *msg.RotationRate)
	assert.Nil(t, msg.Acceleration)
	assert.Equal(t, 16.0, msg.Interval)

	frames := pub.byTopic(func(topic string) bool { return topic == sampleTopic+"/frame" })
	require.NotEmpty(t, frames)
	var f Frame
	require.NoError(t, f.UnmarshalBinary(frames[0].payload))
	assert.Equal(t, float32(1), f.ID)
	assert.Equal(t, float32(3), f.AccZ)
	assert.Equal(t, float32(30), f.Alpha)
}

func TestBridge_DeniedWithoutCapability(t *testing.T) {
	pub, url := startBridge(t, 1)
	p := openPage(t, url, wshost.Message{UserAgent: androidChromeUA, Protocol: "http:", HasDeviceMotion: false})

	select {
	case status, ok := <-p.in:
		require.True(t, ok)
		assert.Equal(t, motion.Denied, status.Permission)
		assert.Contains(t, status.Reason, motion.ErrCapabilityAbsent.Error())
	case <-time.After(3 * time.Second):
		t.Fatal("no status from bridge")
	}

	assert.Len(t, pub.byTopic(func(topic string) bool { return strings.HasPrefix(topic, "dm/permission/") }), 1)
	assert.Empty(t, pub.byTopic(func(topic string) bool { return strings.HasPrefix(topic, "dm/sample/") }))
}

func TestBridge_PromptedPage(t *testing.T) {
	_, url := startBridge(t, 1)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wshost.Message{
		Type:                 wshost.TypeHello,
		UserAgent:            "Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1",
		HasDeviceMotion:      true,
		HasRequestPermission: true,
	}))

	var req wshost.Message
	require.NoError(t, conn.ReadJSON(&req))
	require.Equal(t, wshost.TypeRequestPermission, req.Type)
	require.NoError(t, conn.WriteJSON(wshost.Message{Type: wshost.TypePermission, Result: "denied"}))

	var status StatusMessage
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, motion.Denied, status.Permission)
	assert.Equal(t, platform.IOS, status.Platform.OS)
}

func TestBridge_IPadDesktopModeNormalizedAsIOS(t *testing.T) {
	pub, url := startBridge(t, 1)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wshost.Message{
		Type:                 wshost.TypeHello,
		UserAgent:            "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		Protocol:             "https:",
		HasDeviceMotion:      true,
		HasRequestPermission: true,
		MaxTouchPoints:       5,
	}))

	var req wshost.Message
	require.NoError(t, conn.ReadJSON(&req))
	require.Equal(t, wshost.TypeRequestPermission, req.Type)
	require.NoError(t, conn.WriteJSON(wshost.Message{Type: wshost.TypePermission, Result: "granted"}))

	statusCh := make(chan StatusMessage, 1)
	go func() {
		var s StatusMessage
		if err := conn.ReadJSON(&s); err == nil {
			statusCh <- s
		}
		close(statusCh)
	}()

	// iOS reports the interval in seconds
	raw := motion.RawSample{
		AccelerationIncludingGravity: motion.NewVector(1, 2, 3),
		Interval:                     0.016,
	}
	var status StatusMessage
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(3 * time.Second)
wait:
	for {
		select {
		case s, ok := <-statusCh:
			require.True(t, ok, "connection closed before status")
			status = s
			break wait
		case <-ticker.C:
			require.NoError(t, conn.WriteJSON(wshost.Message{Type: wshost.TypeMotion, Sample: &raw}))
		case <-deadline:
			t.Fatal("no status from bridge")
		}
	}

	require.Equal(t, motion.Granted, status.Permission)
	assert.Equal(t, platform.IOS, status.Platform.OS)
	assert.Equal(t, platform.Safari, status.Platform.Browser)

	sampleTopic := "dm/sample/" + status.Client
	require.Eventually(t, func() bool {
		_ = conn.WriteJSON(wshost.Message{Type: wshost.TypeMotion, Sample: &raw})
		return len(pub.byTopic(func(topic string) bool { return topic == sampleTopic })) > 0
	}, 3*time.Second, 20*time.Millisecond)

	var msg SampleMessage
	require.NoError(t, json.Unmarshal(pub.byTopic(func(topic string) bool { return topic == sampleTopic })[0].payload, &msg))
	require.NotNil(t, msg.AccelerationIncludingGravity)
	assert.Equal(t, motion.Axes{X: -1, Y: -2, Z: -3}, *msg.AccelerationIncludingGravity)
	assert.InDelta(t, 16, msg.Interval, 1e-9)
}

func TestSamplePublisher_Decimation(t *testing.T) {
	pub := &fakePublisher{}
	h := &stubHost{}
	sess := motion.NewSession(h, platform.Info{OS: platform.Windows, Browser: platform.Chrome}, motion.Options{})
	l := newSamplePublisher(pub, "dm/sample", "c1", 7, sess, 2)

	for i := 0; i < 5; i++ {
		l.HandleMotion(&motion.Sample{Interval: 16})
	}

	// JSON + frame for samples 1, 3 and 5
	assert.Len(t, pub.byTopic(func(topic string) bool { return topic == "dm/sample/c1" }), 3)
	assert.Len(t, pub.byTopic(func(topic string) bool { return topic == "dm/sample/c1/frame" }), 3)
}

type stubHost struct{}

func (stubHost) HasDeviceMotion() bool                           { return false }
func (stubHost) AddMotionListener(func(motion.RawSample)) func() { return func() {} }
