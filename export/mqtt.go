package export

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mtraver/air-quality-analysis/summary"
)

const mqttTimeout = 10 * time.Second

// publisher is the part of mqtt.Client that MQTT uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes a summary table as a retained message, so the broker keeps
// only the most recent summary on the topic. The payload is a marshaled
// google.protobuf.Struct with "header" and "rows" fields.
type MQTT struct {
	client publisher
	topic  string
}

func NewMQTT(client mqtt.Client, topic string) *MQTT {
	return &MQTT{
		client: client,
		topic:  topic,
	}
}

// DialMQTT connects to an MQTT broker such as tcp://localhost:1883.
func DialMQTT(broker, clientID, username, password string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetUsername(username).
		SetPassword(password).
		SetConnectTimeout(mqttTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if ok := token.WaitTimeout(mqttTimeout); !ok {
		return nil, fmt.Errorf("export: mqtt: connect to %s timed out after %v", broker, mqttTimeout)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("export: mqtt: connect to %s: %v", broker, token.Error())
	}

	return client, nil
}

func tablePayload(t summary.Table) ([]byte, error) {
	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}

	rows := make([]interface{}, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r
	}

	s, err := structpb.NewStruct(map[string]interface{}{
		"header": header,
		"rows":   rows,
	})
	if err != nil {
		return nil, err
	}

	return proto.Marshal(s)
}

func (m *MQTT) Export(ctx context.Context, t summary.Table) error {
	payload, err := tablePayload(t)
	if err != nil {
		return fmt.Errorf("export: mqtt: %v", err)
	}

	waitDur := mqttTimeout
	if deadline, ok := ctx.Deadline(); ok {
		waitDur = time.Until(deadline)
	}

	token := m.client.Publish(m.topic, 1, true, payload)
	if ok := token.WaitTimeout(waitDur); !ok {
		// Timed out.
		return fmt.Errorf("export: mqtt: publish timed out after %v", waitDur)
	} else if token.Error() != nil {
		// Finished before timeout but failed to publish.
		return fmt.Errorf("export: mqtt: failed to publish: %v", token.Error())
	}

	return nil
}
