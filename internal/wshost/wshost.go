// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package wshost exposes a browser page connected over a websocket as a
// motion.Host. The page forwards its raw devicemotion events and answers
// permission requests; see web/index.html for the client side.
package wshost

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/devicemotion/internal/motion"
)

// Message types on the wire.
const (
	TypeHello             = "hello"
	TypePermission        = "permission"
	TypeMotion            = "motion"
	TypeRequestPermission = "requestPermission"
)

const helloTimeout = 5 * time.Second

// ErrClosed is returned when the page disconnects while a request is pending.
var ErrClosed = errors.New("wshost: connection closed")

// Message is the envelope for every message sent by the page.
type Message struct {
	Type string `json:"type"`

	// hello
	UserAgent            string `json:"userAgent,omitempty"`
	Protocol             string `json:"protocol,omitempty"` // window.location.protocol
	HasDeviceMotion      bool   `json:"hasDeviceMotion,omitempty"`
	HasRequestPermission bool   `json:"hasRequestPermission,omitempty"`
	MaxTouchPoints       int    `json:"maxTouchPoints,omitempty"` // navigator.maxTouchPoints

	// permission
	Result string `json:"result,omitempty"`

	// motion
	Sample *motion.RawSample `json:"sample,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Host is a connected page.
type Host struct {
	conn  *websocket.Conn
	hello Message

	writeMu sync.Mutex

	mu        sync.Mutex
	listeners map[int]func(motion.RawSample)
	nextID    int
	pending   bool // a RequestPermission is waiting for the page

	permCh chan string

	closeOnce sync.Once
	done      chan struct{}
}

// Accept upgrades the request and waits for the page's hello message.
func Accept(w http.ResponseWriter, r *http.Request) (*Host, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("wshost: upgrade: %w", err)
	}
	h, err := newHost(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return h, nil
}

func newHost(conn *websocket.Conn) (*Host, error) {
	if err := conn.SetReadDeadline(time.Now().Add(helloTimeout)); err != nil {
		return nil, fmt.Errorf("wshost: set deadline: %w", err)
	}
	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		return nil, fmt.Errorf("wshost: read hello: %w", err)
	}
	if hello.Type != TypeHello {
		return nil, fmt.Errorf("wshost: expected %q message, got %q", TypeHello, hello.Type)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("wshost: clear deadline: %w", err)
	}

	if hello.Protocol == "http:" {
		log.Printf("wshost: page %s is served over http, recent browsers only expose motion sensors over https", conn.RemoteAddr())
	}

	return &Host{
		conn:      conn,
		hello:     hello,
		listeners: make(map[int]func(motion.RawSample)),
		permCh:    make(chan string, 1),
		done:      make(chan struct{}),
	}, nil
}

// UserAgent returns navigator.userAgent as reported by the page.
func (h *Host) UserAgent() string { return h.hello.UserAgent }

// MaxTouchPoints returns navigator.maxTouchPoints as reported by the page.
func (h *Host) MaxTouchPoints() int { return h.hello.MaxTouchPoints }

// RemoteAddr returns the page's network address.
func (h *Host) RemoteAddr() string { return h.conn.RemoteAddr().String() }

func (h *Host) HasDeviceMotion() bool      { return h.hello.HasDeviceMotion }
func (h *Host) HasPermissionRequest() bool { return h.hello.HasRequestPermission }

// RequestPermission asks the page to call
// DeviceMotionEvent.requestPermission and waits for its answer.
// Answers the page sends while no request is pending are dropped.
func (h *Host) RequestPermission(ctx context.Context) (string, error) {
	h.mu.Lock()
	// an answer that raced a previous cancelled request is stale
	select {
	case <-h.permCh:
	default:
	}
	h.pending = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.pending = false
		h.mu.Unlock()
	}()

	if err := h.Send(Message{Type: TypeRequestPermission}); err != nil {
		return "", err
	}
	select {
	case result := <-h.permCh:
		return result, nil
	case <-h.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (h *Host) AddMotionListener(fn func(motion.RawSample)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Send writes v as a JSON text message. Safe for concurrent use.
func (h *Host) Send(v any) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("wshost: write: %w", err)
	}
	return nil
}

// Serve reads messages until the page disconnects or ctx is done. Motion
// events are delivered to listeners on the calling goroutine, one at a
// time.
func (h *Host) Serve(ctx context.Context) error {
	defer h.Close()

	go func() {
		select {
		case <-ctx.Done():
			h.Close()
		case <-h.done:
		}
	}()

	for {
		var msg Message
		if err := h.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wshost: read: %w", err)
		}

		switch msg.Type {
		case TypeMotion:
			if msg.Sample == nil {
				continue
			}
			h.dispatch(*msg.Sample)
		case TypePermission:
			h.answer(msg.Result)
		default:
			log.Printf("wshost: ignoring %q message from %s", msg.Type, h.RemoteAddr())
		}
	}
}

// answer hands result to the pending RequestPermission, if any.
func (h *Host) answer(result string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending {
		select {
		case h.permCh <- result:
			h.pending = false
			return
		default:
		}
	}
	log.Printf("wshost: unsolicited permission answer %q from %s", result, h.RemoteAddr())
}

func (h *Host) dispatch(raw motion.RawSample) {
	h.mu.Lock()
	fns := make([]func(motion.RawSample), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(raw)
	}
}

// Close closes the connection. It is safe to call more than once.
func (h *Host) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.done)
		err = h.conn.Close()
	})
	return err
}

// Done is closed when the connection is closed.
func (h *Host) Done() <-chan struct{} {
	return h.done
}
