package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const EventsExchange = "renamer.events"

func NewConnection(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	return conn, nil
}
