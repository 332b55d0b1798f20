package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

type fakeToken struct {
	err     error
	timeout bool
	done    chan struct{}
}

func newFakeToken(err error, timeout bool) *fakeToken {
	t := &fakeToken{err: err, timeout: timeout, done: make(chan struct{})}
	if !timeout {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mqtt.Client

	mu         sync.Mutex
	connectErr error
	publishErr error
	timeout    bool
	messages   []published
}

func (c *fakeClient) Connect() mqtt.Token {
	return newFakeToken(c.connectErr, false)
}

func (c *fakeClient) IsConnected() bool { return true }

func (c *fakeClient) Disconnect(quiesce uint) {}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, payload: payload.([]byte)})
	return newFakeToken(c.publishErr, c.timeout)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPublisher(client *fakeClient) *Publisher {
	return &Publisher{client: client, config: withDefaults(Config{}), logger: discardLogger()}
}

func knownResult() domain.RecognitionResult {
	return domain.RecognitionResult{
		Outcome: domain.OutcomeDetected,
		Faces: []domain.FaceBox{
			{Known: true, Name: "Ana"},
			{Known: false, Name: "Budi"},
		},
		Status: domain.StatusAllowed,
		Label:  domain.StatusLabel{Known: true, Name: "Ana"},
	}
}

func TestBrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://localhost:1883", brokerURL("localhost:1883"))
	assert.Equal(t, "ssl://broker:8883", brokerURL("ssl://broker:8883"))
}

func TestPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client)
	require.NoError(t, p.Connect(context.Background()))

	require.NoError(t, p.Publish(knownResult()))

	require.Len(t, client.messages, 1)
	assert.Equal(t, "homeguard/recognition/penghuni", client.messages[0].topic)

	var msg Message
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &msg))
	assert.Equal(t, domain.CategoryResident, msg.Category)
	assert.Equal(t, "Ana", msg.Name)
	assert.Equal(t, 2, msg.Faces)
	assert.Equal(t, []string{"Ana"}, msg.KnownNames)

	assert.Equal(t, Stats{Connected: true, Published: 1}, p.Stats())
}

func TestPublisher_UnknownTopic(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client)
	require.NoError(t, p.Connect(context.Background()))

	result := knownResult()
	result.Label = domain.StatusLabel{Known: false, Name: "Unknown"}
	require.NoError(t, p.Publish(result))

	require.Len(t, client.messages, 1)
	assert.Equal(t, "homeguard/recognition/unknown", client.messages[0].topic)
}

func TestPublisher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeClient
		connect bool
		wantErr string
	}{
		{name: "not connected", client: &fakeClient{}, connect: false, wantErr: "not connected"},
		{name: "publish failure", client: &fakeClient{publishErr: errors.New("broker gone")}, connect: true, wantErr: "publish failed"},
		{name: "publish timeout", client: &fakeClient{timeout: true}, connect: true, wantErr: "publish timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPublisher(tt.client)
			if tt.connect {
				require.NoError(t, p.Connect(context.Background()))
			}

			err := p.Publish(knownResult())

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, uint64(1), p.Stats().Errors)
		})
	}
}

func TestPublisher_IgnoresNoFace(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client)

	require.NoError(t, p.Publish(domain.RecognitionResult{Outcome: domain.OutcomeNoFace}))
	assert.Empty(t, client.messages)
}

func TestPublisher_ConnectFailure(t *testing.T) {
	p := newTestPublisher(&fakeClient{connectErr: errors.New("refused")})

	err := p.Connect(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
	assert.False(t, p.Stats().Connected)
}
