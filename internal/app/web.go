package app

import (
	"fmt"
	"log"
	"net/http"

	"github.com/relabs-tech/devicemotion/internal/config"
)

// RunWeb serves the motion pages and bridges their sensors to MQTT.
func RunWeb() error {
	cfg := config.Get()

	pub, err := NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientIDBridge, cfg.MQTTQoS)
	if err != nil {
		return err
	}
	defer pub.Close()

	bridge := NewBridge(BridgeConfig{
		TopicMotion:     cfg.TopicMotion,
		TopicPermission: cfg.TopicPermission,
		ProbeTimeout:    cfg.ProbeTimeout(),
		EmitDecimation:  cfg.EmitDecimation,
	}, pub)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s (static %q, samples on %s/<client>)", addr, cfg.StaticDir, cfg.TopicMotion)
	return http.ListenAndServe(addr, bridge.Routes(cfg.StaticDir))
}
