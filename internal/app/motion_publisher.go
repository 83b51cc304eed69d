package app

import (
	"encoding/json"
	"log"
	"time"

	"github.com/relabs-tech/devicemotion/internal/motion"
	"github.com/relabs-tech/devicemotion/internal/platform"
)

// SampleMessage is the JSON form of a normalized sample. Groups the
// platform does not provide are omitted.
type SampleMessage struct {
	Client                       string        `json:"client"`
	Time                         float64       `json:"time"` // seconds since the session started
	AccelerationIncludingGravity *motion.Axes  `json:"accelerationIncludingGravity,omitempty"`
	Acceleration                 *motion.Axes  `json:"acceleration,omitempty"`
	RotationRate                 *motion.Rates `json:"rotationRate,omitempty"`
	Interval                     float64       `json:"interval"` // ms
}

// StatusMessage reports the outcome of a client's permission gate.
type StatusMessage struct {
	Type         string                   `json:"type"` // always "status"
	Client       string                   `json:"client"`
	Platform     platform.Info            `json:"platform"`
	Permission   motion.PermissionState   `json:"permission"`
	Reason       string                   `json:"reason,omitempty"`
	Availability motion.FieldAvailability `json:"availability"`
	Time         string                   `json:"time"`
}

func newStatusMessage(client string, sess *motion.Session) StatusMessage {
	msg := StatusMessage{
		Type:         "status",
		Client:       client,
		Platform:     sess.Platform(),
		Permission:   sess.State(),
		Availability: sess.FieldAvailability(),
		Time:         time.Now().Format(time.RFC3339),
	}
	if err := sess.Reason(); err != nil {
		msg.Reason = err.Error()
	}
	return msg
}

// samplePublisher is a motion.Listener that forwards samples of one client
// as JSON on <topic>/<client> and as a binary Frame on <topic>/<client>/frame.
type samplePublisher struct {
	pub        Publisher
	topic      string
	client     string
	frameID    uint32
	avail      motion.FieldAvailability
	decimation int
	start      time.Time

	count int
}

func newSamplePublisher(pub Publisher, baseTopic, client string, frameID uint32, sess *motion.Session, decimation int) *samplePublisher {
	if decimation < 1 {
		decimation = 1
	}
	return &samplePublisher{
		pub:        pub,
		topic:      baseTopic + "/" + client,
		client:     client,
		frameID:    frameID,
		avail:      sess.FieldAvailability(),
		decimation: decimation,
		start:      time.Now(),
	}
}

// HandleMotion runs on the session's sequential emission path.
func (p *samplePublisher) HandleMotion(s *motion.Sample) {
	p.count++
	if (p.count-1)%p.decimation != 0 {
		return
	}
	seconds := time.Since(p.start).Seconds()

	payload, err := json.Marshal(sampleMessage(p.client, p.avail, s, seconds))
	if err != nil {
		log.Printf("json marshal error (sample): %v", err)
		return
	}
	if err := p.pub.Publish(p.topic, false, payload); err != nil {
		log.Printf("publish error (%s): %v", p.topic, err)
		return
	}

	frame, err := NewFrame(p.frameID, s, seconds).MarshalBinary()
	if err != nil {
		log.Printf("frame encode error: %v", err)
		return
	}
	if err := p.pub.Publish(p.topic+"/frame", false, frame); err != nil {
		log.Printf("publish error (%s/frame): %v", p.topic, err)
	}
}

func sampleMessage(client string, avail motion.FieldAvailability, s *motion.Sample, seconds float64) SampleMessage {
	msg := SampleMessage{
		Client:   client,
		Time:     seconds,
		Interval: s.Interval,
	}
	if avail.AccelerationIncludingGravity {
		acc := s.AccelerationIncludingGravity
		msg.AccelerationIncludingGravity = &acc
	}
	if avail.Acceleration {
		acc := s.Acceleration
		msg.Acceleration = &acc
	}
	if avail.RotationRate {
		rot := s.RotationRate
		msg.RotationRate = &rot
	}
	return msg
}

func publishStatus(pub Publisher, baseTopic string, status StatusMessage) {
	payload, err := json.Marshal(status)
	if err != nil {
		log.Printf("json marshal error (status): %v", err)
		return
	}
	topic := baseTopic + "/" + status.Client
	if err := pub.Publish(topic, true, payload); err != nil {
		log.Printf("publish error (%s): %v", topic, err)
	}
}
