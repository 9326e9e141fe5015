package history

import (
	"context"
	"strings"
	"time"

	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
)

// recordTimeout bounds the SQLite insert so a wedged disk cannot stall
// the MQTT publish path.
const recordTimeout = 5 * time.Second

// stateSuffixes are the topic tails that carry entity state. Plain
// "status" is excluded: a bare `{root}/status` topic is availability,
// not state.
var stateSuffixes = []string{
	"state",
	"light/status",
	"fan/status",
	"brightness/status",
	"speed/percentage_state",
}

// RecordingPublisher decorates an MQTT publisher, logging every state
// payload it sees. Publish failures are returned untouched; recording
// failures are logged and never fail the publish.
type RecordingPublisher struct {
	next entity.Publisher
	rec  *Recorder
}

// NewRecordingPublisher wraps next so state publishes land in rec.
func NewRecordingPublisher(next entity.Publisher, rec *Recorder) *RecordingPublisher {
	return &RecordingPublisher{next: next, rec: rec}
}

func (p *RecordingPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	err := p.next.Publish(topic, payload, qos, retained)
	if err != nil || len(payload) == 0 {
		return err
	}

	hassType, mqttName, ok := splitStateTopic(topic)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if recErr := p.rec.RecordState(ctx, mqttName, hassType, topic, string(payload)); recErr != nil && p.rec.log != nil {
		p.rec.log.Warn("state history write failed", "topic", topic, "error", recErr)
	}
	return nil
}

func (p *RecordingPublisher) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return p.next.Subscribe(topic, qos, handler)
}

func (p *RecordingPublisher) Unsubscribe(topic string) error {
	return p.next.Unsubscribe(topic)
}

func (p *RecordingPublisher) IsConnected() bool {
	return p.next.IsConnected()
}

// splitStateTopic extracts the hass type and mqtt name from a state
// topic of the form `{prefix}/{hass_type}/{mqtt_name}/{suffix}`.
func splitStateTopic(topic string) (hassType, mqttName string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		return "", "", false
	}
	suffix := strings.Join(parts[3:], "/")
	for _, s := range stateSuffixes {
		if suffix == s {
			return parts[1], parts[2], true
		}
	}
	return "", "", false
}
