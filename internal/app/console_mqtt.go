package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/devicemotion/internal/config"
)

// RunConsoleMQTT prints the status and samples published by the bridge.
// Samples are throttled to one line per client per CONSOLE_LOG_INTERVAL.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to permission results
	statusTopic := cfg.TopicPermission + "/+"
	statusToken := client.Subscribe(statusTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s StatusMessage
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Println(formatStatus(s))
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", statusTopic)

	// Subscribe to samples; frames live one level deeper and are skipped
	throttle := newThrottle(time.Duration(cfg.ConsoleLogInterval) * time.Millisecond)
	sampleTopic := cfg.TopicMotion + "/+"
	sampleToken := client.Subscribe(sampleTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s SampleMessage
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: sample unmarshal error: %v", err)
			return
		}
		if !throttle.allow(s.Client, time.Now()) {
			return
		}
		fmt.Println(formatSample(s))
	})
	sampleToken.Wait()
	if sampleToken.Error() != nil {
		return sampleToken.Error()
	}
	log.Printf("console: subscribed to %s", sampleTopic)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func shortID(client string) string {
	if len(client) > 8 {
		return client[:8]
	}
	return client
}

func formatStatus(s StatusMessage) string {
	line := fmt.Sprintf("[PERM]  client=%s platform=%s permission=%s", shortID(s.Client), s.Platform, s.Permission)
	if s.Reason != "" {
		line += " reason=" + s.Reason
	}
	var groups []string
	if s.Availability.AccelerationIncludingGravity {
		groups = append(groups, "accG")
	}
	if s.Availability.Acceleration {
		groups = append(groups, "acc")
	}
	if s.Availability.RotationRate {
		groups = append(groups, "gyro")
	}
	if len(groups) > 0 {
		line += " fields=" + strings.Join(groups, ",")
	}
	return line
}

func formatSample(s SampleMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[MOTION] client=%s t=%7.2fs", shortID(s.Client), s.Time)
	if a := s.AccelerationIncludingGravity; a != nil {
		fmt.Fprintf(&b, "  accG x=%6.2f y=%6.2f z=%6.2f", a.X, a.Y, a.Z)
	}
	if a := s.Acceleration; a != nil {
		fmt.Fprintf(&b, "  acc x=%6.2f y=%6.2f z=%6.2f", a.X, a.Y, a.Z)
	}
	if r := s.RotationRate; r != nil {
		fmt.Fprintf(&b, "  gyro a=%7.2f b=%7.2f g=%7.2f", r.Alpha, r.Beta, r.Gamma)
	}
	fmt.Fprintf(&b, "  dt=%.1fms", s.Interval)
	return b.String()
}

// throttle lets one event per key through every interval.
type throttle struct {
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval, last: make(map[string]time.Time)}
}

func (t *throttle) allow(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[key] = now
	return true
}
