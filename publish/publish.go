/*
Package publish forwards each newly tracked position to an MQTT broker as a
JSON message so other devices can follow the try-on position.
*/
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/alankarika/go-tryon/config"
	"github.com/alankarika/go-tryon/position"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewClientFunc creates the MQTT client, replaced in tests
var NewClientFunc = mqtt.NewClient

// publishTimeout bounds the wait for a publish acknowledgement
const publishTimeout = 2 * time.Second

// Watcher delivers stored positions, implemented by position.Cell
type Watcher interface {
	Watch(ctx context.Context) <-chan position.Position
}

// Message is the JSON payload published for each position
type Message struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	// TS is the publish time in Unix milliseconds
	TS int64 `json:"ts"`
}

// Publisher sends tracked positions to an MQTT topic
type Publisher struct {
	cfg    config.MQTTConfig
	client mqtt.Client
	src    Watcher
	log    log.FieldLogger
}

// New returns a Publisher for the positions delivered by src
func New(cfg config.MQTTConfig, src Watcher) *Publisher {

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}

	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	p := &Publisher{
		cfg: cfg,
		src: src,
		log: log.WithFields(log.Fields{
			"component": "publish",
			"topic":     cfg.Topic,
		}),
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.log.WithError(err).Warn("MQTT connection lost")
	})

	p.client = NewClientFunc(opts)

	return p
}

// Run connects to the broker and publishes positions until ctx is done
func (p *Publisher) Run(ctx context.Context) error {

	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	p.log.Info("Connected to MQTT broker")

	defer func() {
		p.log.Info("Disconnecting MQTT client")
		p.client.Disconnect(250)
	}()

	updates := p.src.Watch(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case pos, ok := <-updates:
			if !ok {
				return nil
			}

			if err := p.publish(pos, time.Now()); err != nil {
				p.log.WithError(err).Warn("Error publishing position")
			}
		}
	}
}

// publish sends a single position
func (p *Publisher) publish(pos position.Position, at time.Time) error {

	payload, err := json.Marshal(Message{
		X:  pos.X,
		Y:  pos.Y,
		Z:  pos.Z,
		TS: at.UnixMilli(),
	})

	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}

	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, payload)

	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to topic %s", p.cfg.Topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish message to topic %s: %w", p.cfg.Topic, err)
	}

	return nil
}
