package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/relabs-tech/devicemotion/internal/config"
	"github.com/relabs-tech/devicemotion/internal/motion"
	"github.com/relabs-tech/devicemotion/internal/platform"
	"github.com/relabs-tech/devicemotion/internal/replay"
)

// source is a host plus the platform it claims to run on.
type source struct {
	host motion.Host
	info platform.Info
	done <-chan struct{} // nil for endless sources
}

func openSource(tracePath string) (source, error) {
	cfg := config.Get()
	if tracePath == "" {
		log.Println("using mock motion host")
		return source{
			host: motion.NewMockHost(cfg.MockInterval()),
			info: platform.Detect(mockUserAgent),
		}, nil
	}

	tr, err := replay.Load(tracePath)
	if err != nil {
		return source{}, err
	}
	host := replay.NewHost(tr)
	log.Printf("replaying %s (%d events)", tracePath, len(tr.Events))
	return source{host: host, info: tr.Platform(), done: host.Done()}, nil
}

// RunProducer publishes normalized samples from the mock host, or from a
// recorded trace when tracePath is set, to MQTT.
func RunProducer(tracePath string) error {
	cfg := config.Get()

	src, err := openSource(tracePath)
	if err != nil {
		return err
	}

	pub, err := NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientIDProducer, cfg.MQTTQoS)
	if err != nil {
		return err
	}
	defer pub.Close()

	client := uuid.NewString()
	sess := motion.NewSession(src.host, src.info, motion.Options{ProbeTimeout: cfg.ProbeTimeout()})
	sess.RequestPermission(context.Background())

	publishStatus(pub, cfg.TopicPermission, newStatusMessage(client, sess))
	if sess.State() != motion.Granted {
		return fmt.Errorf("permission %s: %w", sess.State(), sess.Reason())
	}

	l := newSamplePublisher(pub, cfg.TopicMotion, client, 0, sess, cfg.EmitDecimation)
	sess.AddListener(l)
	defer sess.RemoveListener(l)
	log.Printf("publishing samples of %s on %s/%s", src.info, cfg.TopicMotion, client)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-src.done:
		log.Println("trace finished")
	}
	return nil
}

// RunReplay writes the session status and every normalized sample of a
// trace to w as JSON lines.
func RunReplay(tracePath string, w io.Writer) error {
	cfg := config.Get()

	tr, err := replay.Load(tracePath)
	if err != nil {
		return err
	}
	host := replay.NewHost(tr)
	sess := motion.NewSession(host, tr.Platform(), motion.Options{ProbeTimeout: cfg.ProbeTimeout()})

	sw := &sampleWriter{enc: json.NewEncoder(w), sess: sess}
	sess.AddListener(sw)

	// samples emitted right after the probe wait until the status is out
	sw.mu.Lock()
	sess.RequestPermission(context.Background())
	err = sw.enc.Encode(newStatusMessage("replay", sess))
	sw.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if sess.State() != motion.Granted {
		return nil
	}

	<-host.Done()
	sess.RemoveListener(sw)

	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.err
}

// sampleWriter encodes samples as JSON lines, timed by their intervals.
// It keeps the first encoding error and stops writing after it.
type sampleWriter struct {
	enc  *json.Encoder
	sess *motion.Session

	mu        sync.Mutex
	elapsedMS float64
	err       error
}

func (w *sampleWriter) HandleMotion(s *motion.Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	w.elapsedMS += s.Interval
	msg := sampleMessage("replay", w.sess.FieldAvailability(), s, w.elapsedMS/1000)
	if err := w.enc.Encode(msg); err != nil {
		w.err = fmt.Errorf("write sample: %w", err)
	}
}
