package export

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeToken struct {
	done    chan struct{}
	err     error
	timeout bool
}

func newFakeToken(err error, timeout bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err, timeout: timeout}
	if !timeout {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeBroker keeps the last retained message per topic.
type fakeBroker struct {
	retained map[string]message
	err      error
	timeout  bool
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if b.err == nil && !b.timeout && retained {
		b.retained[topic] = message{topic, qos, retained, payload.([]byte)}
	}
	return newFakeToken(b.err, b.timeout)
}

func TestMQTTExport(t *testing.T) {
	broker := &fakeBroker{retained: map[string]message{}}
	m := &MQTT{client: broker, topic: "air-purifier/summary"}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := m.Export(ctx, testTable); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if len(broker.retained) != 1 {
		t.Fatalf("got %d retained messages, want 1", len(broker.retained))
	}
	msg := broker.retained["air-purifier/summary"]
	if msg.qos != 1 {
		t.Errorf("got QoS %d, want 1", msg.qos)
	}

	var s structpb.Struct
	if err := proto.Unmarshal(msg.payload, &s); err != nil {
		t.Fatalf("Failed to unmarshal payload: %v", err)
	}

	want := map[string]interface{}{
		"header": []interface{}{"statistic", "oxygen", "aqi"},
		"rows": []interface{}{
			[]interface{}{"count", 2.0, 2.0},
			[]interface{}{"mean", 20.8, 41.5},
		},
	}
	if diff := cmp.Diff(s.AsMap(), want); diff != "" {
		t.Errorf("Unexpected payload (-got +want):\n%s", diff)
	}
}

func TestMQTTExportErrors(t *testing.T) {
	cases := []struct {
		name   string
		broker *fakeBroker
	}{
		{"publish_error", &fakeBroker{retained: map[string]message{}, err: errors.New("connection lost")}},
		{"timeout", &fakeBroker{retained: map[string]message{}, timeout: true}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := &MQTT{client: c.broker, topic: "air-purifier/summary"}
			if err := m.Export(context.Background(), testTable); err == nil {
				t.Error("Expected error, but error is nil")
			}
		})
	}
}
