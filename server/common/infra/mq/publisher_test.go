package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	declErr   error
	closed    int
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return f.declErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed++
	return nil
}

func TestPublishEncodesJSON(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, EventsExchange)
	require.NoError(t, err)
	require.Equal(t, []string{"renamer.events:topic"}, ch.declared)

	require.NoError(t, p.Publish(context.Background(), KeyMediaRenamed, map[string]string{"token": "abc"}))
	require.Equal(t, []string{"renamer.events/media.renamed"}, ch.keys)
	require.Equal(t, "application/json", ch.published[0].ContentType)

	var body map[string]string
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &body))
	require.Equal(t, "abc", body["token"])

	p.Close()
	require.Equal(t, 1, ch.closed)
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	require.NoError(t, p.Publish(context.Background(), KeyDownloadServed, nil))
	p.Close()
}

func TestDeclareFailure(t *testing.T) {
	_, err := newPublisher(&fakeChannel{declErr: errors.New("denied")}, EventsExchange)
	require.Error(t, err)
}
