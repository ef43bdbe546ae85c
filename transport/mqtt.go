// Package transport connects a player to an MQTT broker: scroll positions come in,
// frame events go out.
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/playback"
)

// A Poster delivers callbacks onto the loop goroutine.
type Poster interface {
	Post(fn func())
}

// Topics names the MQTT topics used by a Bridge.
type Topics struct {
	Scroll          string `yaml:"scroll"`
	FrameShown      string `yaml:"frameShown"`
	PreloadComplete string `yaml:"preloadComplete"`
}

// ScrollMessage is the payload published by the host page on every scroll event.
// Either the document geometry or a normalised fraction is given.
type ScrollMessage struct {
	ScrollTop      float64  `json:"scrollTop"`
	DocumentHeight float64  `json:"documentHeight"`
	ViewportHeight float64  `json:"viewportHeight"`
	Fraction       *float64 `json:"fraction,omitempty"`
}

// EventMessage is published when a frame is shown or preloading finishes.
type EventMessage struct {
	Type   string    `json:"type"`
	Frame  int       `json:"frame,omitempty"`
	Frames int       `json:"frames,omitempty"`
	Time   time.Time `json:"time"`
}

// Bridge feeds scroll messages into a player and publishes its events.
type Bridge struct {
	client mqtt.Client
	topics Topics
	qos    byte
	post   Poster
	log    logrus.FieldLogger
	now    func() time.Time

	// Owned by the loop goroutine.
	pos      playback.ScrollPosition
	onScroll func()
}

// NewBridge creates an instance of a Bridge.
func NewBridge(client mqtt.Client, topics Topics, qos byte, post Poster, log logrus.FieldLogger) *Bridge {
	b := new(Bridge)
	b.client = client
	b.topics = topics
	b.qos = qos
	b.post = post
	b.log = log.WithField("component", "mqtt")
	b.now = time.Now
	return b
}

// OnScroll sets the function called on the loop for every scroll message.
func (b *Bridge) OnScroll(fn func()) {
	b.onScroll = fn
}

// ScrollPosition returns the last received position. It is read on the loop.
func (b *Bridge) ScrollPosition() playback.ScrollPosition {
	return b.pos
}

// Subscribe subscribes to the scroll topic.
func (b *Bridge) Subscribe() error {
	token := b.client.Subscribe(b.topics.Scroll, b.qos, b.handleScroll)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", b.topics.Scroll, token.Error())
	}
	b.log.WithField("topic", b.topics.Scroll).Info("Subscribed")
	return nil
}

// DecodeScroll parses a scroll message payload.
func DecodeScroll(payload []byte) (playback.ScrollPosition, error) {
	var msg ScrollMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return playback.ScrollPosition{}, fmt.Errorf("decode scroll message: %w", err)
	}
	if msg.Fraction != nil {
		return playback.FractionPosition(*msg.Fraction), nil
	}
	return playback.ScrollPosition{
		Top:            msg.ScrollTop,
		DocumentHeight: msg.DocumentHeight,
		ViewportHeight: msg.ViewportHeight,
	}, nil
}

func (b *Bridge) handleScroll(client mqtt.Client, msg mqtt.Message) {
	pos, err := DecodeScroll(msg.Payload())
	if err != nil {
		b.log.WithError(err).WithField("topic", msg.Topic()).Warn("Dropping scroll message")
		return
	}

	b.post.Post(func() {
		b.pos = pos
		if b.onScroll != nil {
			b.onScroll()
		}
	})
}

// PublishFrameShown announces that frame became visible.
func (b *Bridge) PublishFrameShown(frame int) {
	b.publish(b.topics.FrameShown, EventMessage{Type: "frameShown", Frame: frame, Time: b.now()})
}

// PublishPreloadComplete announces that every frame has been preloaded.
func (b *Bridge) PublishPreloadComplete(frames int) {
	b.publish(b.topics.PreloadComplete, EventMessage{Type: "preloadComplete", Frames: frames, Time: b.now()})
}

func (b *Bridge) publish(topic string, msg EventMessage) {
	if topic == "" {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.log.WithError(err).Error("Encoding event")
		return
	}

	// Publish runs on the loop, so the token is awaited elsewhere.
	token := b.client.Publish(topic, b.qos, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			b.log.WithError(token.Error()).WithField("topic", topic).Warn("Publish failed")
		}
	}()
}
