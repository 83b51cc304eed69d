package app

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends payloads to a topic.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTPublisher publishes to an MQTT broker.
type MQTTPublisher struct {
	client mqtt.Client
	qos    byte
}

// NewMQTTPublisher connects to broker.
func NewMQTTPublisher(broker, clientID string, qos byte) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s as %s", broker, clientID)

	return &MQTTPublisher{client: client, qos: qos}, nil
}

func (p *MQTTPublisher) Publish(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, p.qos, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects, leaving 250ms for in-flight messages.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
