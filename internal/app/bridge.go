package app

import (
	"context"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/devicemotion/internal/motion"
	"github.com/relabs-tech/devicemotion/internal/platform"
	"github.com/relabs-tech/devicemotion/internal/wshost"
)

// BridgeConfig holds what the bridge needs from the global config.
type BridgeConfig struct {
	TopicMotion     string
	TopicPermission string
	ProbeTimeout    time.Duration
	EmitDecimation  int
}

// Bridge runs one motion session per connected page and publishes the
// normalized samples.
type Bridge struct {
	cfg     BridgeConfig
	pub     Publisher
	frameID atomic.Uint32
}

// NewBridge creates a bridge publishing through pub.
func NewBridge(cfg BridgeConfig, pub Publisher) *Bridge {
	return &Bridge{cfg: cfg, pub: pub}
}

// HandleMotionWS serves one page for the lifetime of its websocket.
func (b *Bridge) HandleMotionWS(w http.ResponseWriter, r *http.Request) {
	host, err := wshost.Accept(w, r)
	if err != nil {
		log.Printf("bridge: %v", err)
		return
	}
	defer host.Close()

	client := uuid.NewString()
	frameID := b.frameID.Add(1)
	info := platform.DetectWith(host.UserAgent(), host.MaxTouchPoints())
	log.Printf("bridge: client %s (#%d) connected from %s, platform %s", client, frameID, host.RemoteAddr(), info)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() { served <- host.Serve(ctx) }()

	sess := motion.NewSession(host, info, motion.Options{ProbeTimeout: b.cfg.ProbeTimeout})

	reqCtx, reqCancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-host.Done():
			reqCancel()
		case <-reqCtx.Done():
		}
	}()
	permission := sess.RequestPermission(reqCtx)
	// some browsers answered differently on a second prompt; the session
	// must hide that
	again := sess.RequestPermission(reqCtx)
	reqCancel()

	if permission == motion.Unrequested {
		log.Printf("bridge: client %s left before permission resolved", client)
		return
	}
	if again != permission {
		log.Printf("bridge: client %s: inconsistent permission %s then %s", client, permission, again)
		return
	}

	status := newStatusMessage(client, sess)
	publishStatus(b.pub, b.cfg.TopicPermission, status)
	if err := host.Send(status); err != nil {
		log.Printf("bridge: client %s: %v", client, err)
		return
	}

	if permission == motion.Granted {
		l := newSamplePublisher(b.pub, b.cfg.TopicMotion, client, frameID, sess, b.cfg.EmitDecimation)
		sess.AddListener(l)
		defer sess.RemoveListener(l)
	}

	if err := <-served; err != nil {
		log.Printf("bridge: client %s: %v", client, err)
	}
	log.Printf("bridge: client %s disconnected", client)
}

// Routes returns the bridge's HTTP handlers, serving staticDir at "/" when
// it is not empty.
func (b *Bridge) Routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/motion", b.HandleMotionWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}
