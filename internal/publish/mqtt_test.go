package publish

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	api "github.com/monorkin/awair-local/awair/api"
)

type fakeToken struct {
	err error
}

func (token *fakeToken) Wait() bool                     { return true }
func (token *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (token *fakeToken) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}
func (token *fakeToken) Error() error { return token.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	messages []published
	err      error
}

func (client *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	client.messages = append(client.messages, published{topic, qos, retained, payload.([]byte)})
	return &fakeToken{err: client.err}
}

func TestPublishSendsReadingAsJSON(t *testing.T) {
	client := &fakeClient{}
	publisher := newPublisher(client, Options{Topic: "home/air/", QoS: 1, Retained: true}, nil)

	co2 := int64(612)
	reading := &api.Reading{Timestamp: time.Unix(1700000000, 0).UTC(), Score: 88, CO2: &co2}

	if err := publisher.Publish("awair-elem-1", reading); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if len(client.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(client.messages))
	}

	message := client.messages[0]
	if message.topic != "home/air/awair-elem-1" {
		t.Fatalf("unexpected topic %q", message.topic)
	}
	if message.qos != 1 || !message.retained {
		t.Fatalf("unexpected qos/retained %d/%v", message.qos, message.retained)
	}

	var decoded struct {
		Device  string         `json:"device"`
		Reading map[string]any `json:"reading"`
	}
	if err := json.Unmarshal(message.payload, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.Device != "awair-elem-1" || decoded.Reading["co2"] != float64(612) {
		t.Fatalf("unexpected payload %s", message.payload)
	}
	if _, ok := decoded.Reading["voc"]; ok {
		t.Fatalf("absent sensors must be omitted, got %s", message.payload)
	}
}

func TestPublishReportsBrokerErrors(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	publisher := newPublisher(client, Options{Topic: "awair"}, nil)

	if err := publisher.Publish("awair-elem-1", &api.Reading{Score: 1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTopicForEscapesWildcards(t *testing.T) {
	publisher := newPublisher(&fakeClient{}, Options{Topic: "awair"}, nil)

	if got := publisher.TopicFor("a/b+c#"); got != "awair/a_b_c_" {
		t.Fatalf("unexpected topic %q", got)
	}
}
