// Package gateway pushes response envelopes to the requester's session
// channel. The session layer in front of this service consumes the
// client.push exchange and forwards each message over its own transport;
// if the session is already gone the message is dropped there.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/crewnet/enrol-service/app/config"
	"github.com/crewnet/enrol-service/app/dto"
)

// channel is the slice of *amqp.Channel the publisher uses; narrowed for
// testability.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPGateway publishes client-bound envelopes to a topic exchange with
// the requester id as routing key.
type AMQPGateway struct {
	ch      channel
	timeout time.Duration
}

func NewAMQPGateway(ch *amqp.Channel) *AMQPGateway {
	return &AMQPGateway{ch: ch, timeout: 5 * time.Second}
}

func newAMQPGatewayWithChannel(ch channel) *AMQPGateway {
	return &AMQPGateway{ch: ch, timeout: 5 * time.Second}
}

func (g *AMQPGateway) Send(requesterID string, resp dto.Push) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	return g.ch.PublishWithContext(
		ctx,
		config.ClientPushExchange, // exchange
		requesterID,               // routing key
		false,                     // mandatory
		false,                     // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
