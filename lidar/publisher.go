package lidar

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPublishPrefix is the topic prefix used when none is configured
const DefaultPublishPrefix = "veloproj"

// FrameStatus is the JSON payload published to <prefix>/status after each frame
type FrameStatus struct {
	Frame      int    `json:"frame"`
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Rejected   int    `json:"rejected"`
	Degenerate int    `json:"degenerate"`
	Projected  int    `json:"projected"`
	Published  int    `json:"published"`
	Timestamp  int64  `json:"timestamp"`
}

// Publisher publishes depth images and frame status to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	published     int
	mu            sync.Mutex
}

// NewPublisher creates a new frame publisher. An empty prefix uses DefaultPublishPrefix.
// If client is nil, every publish fails with a not-connected error.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        false,
	}
}

// Prefix returns the topic prefix
func (p *Publisher) Prefix() string {
	return p.publishPrefix
}

// DepthTopic returns the topic a frame's depth image is published to
func (p *Publisher) DepthTopic(name string) string {
	return fmt.Sprintf("%s/depth/%s", p.publishPrefix, name)
}

// StatusTopic returns the topic frame status is published to
func (p *Publisher) StatusTopic() string {
	return fmt.Sprintf("%s/status", p.publishPrefix)
}

// PublishFrame publishes the PNG-encoded depth image followed by a status message
func (p *Publisher) PublishFrame(res *FrameResult) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	if res.Depth == nil {
		return fmt.Errorf("frame %d has no depth image", res.Frame.Index)
	}

	payload, err := EncodePNG(res.Depth)
	if err != nil {
		return fmt.Errorf("encoding depth image: %w", err)
	}

	name := FrameFileName(res.Frame.Index)
	if err := p.publish(p.DepthTopic(name), payload); err != nil {
		log.Printf("Error publishing depth image for frame %d: %v", res.Frame.Index, err)
		return err
	}

	p.mu.Lock()
	p.published++
	count := p.published
	p.mu.Unlock()

	return p.PublishStatus(FrameStatus{
		Frame:      res.Frame.Index,
		Name:       name,
		Total:      res.Stats.Total,
		Rejected:   res.Stats.Rejected,
		Degenerate: res.Stats.Degenerate,
		Projected:  res.Stats.Projected,
		Published:  count,
	})
}

// PublishStatus publishes a status message, stamping it with the current time
func (p *Publisher) PublishStatus(status FrameStatus) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	if status.Timestamp == 0 {
		status.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	return p.publish(p.StatusTopic(), payload)
}

// Published returns how many depth images have been published
func (p *Publisher) Published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}

func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}
