package rabbit

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publish sends msg to the configured exchange with routingKey and waits
// for the broker's confirm. The wait is bounded by ctx and by
// Channel.ConfirmTimeout.
//
// Example:
//
//	err := client.Publish(ctx, "function.invoked", amqp.Publishing{
//	    ContentType: "application/json",
//	    Body:        body,
//	})
func (rb *RabbitClient) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	var publishErr error
	done := rb.trackPublish(routingKey)
	defer func() { done(publishErr, int64(len(msg.Body))) }()

	select {
	case <-rb.shutdownSignal:
		publishErr = ErrShutdown
		return publishErr
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, rb.cfg.Channel.ConfirmTimeout)
	defer cancel()

	rb.mu.RLock()
	ch := rb.channel
	rb.mu.RUnlock()

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		rb.cfg.Channel.ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		publishErr = fmt.Errorf("failed to publish: %w", TranslateError(err))
		return publishErr
	}

	acked, err := confirm.WaitContext(ctx)
	switch {
	case err != nil:
		publishErr = fmt.Errorf("failed to wait for publisher confirm: %w", err)
	case !acked:
		publishErr = ErrMessageNacked
	}
	return publishErr
}

func (rb *RabbitClient) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if rb.logger != nil {
		rb.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (rb *RabbitClient) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if rb.logger != nil {
		rb.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (rb *RabbitClient) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if rb.logger != nil {
		rb.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
