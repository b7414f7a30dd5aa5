package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// Processor runs one job.
type Processor func(ctx context.Context, job Job) error

// Consume delivers the messages of queueName to process one at a time
// until ctx is done. A failed job goes to the retry queue, and to the dead
// letter queue once it ran out of retries. A message that is not a job
// goes straight to the dead letter queue.
func Consume(ctx context.Context, ch Channel, queueName string, process Processor) error {
	msgs, err := ch.Consume(
		queueName,
		queueName+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", queueName, err)
	}

	logger.Info("[Queue] Listening for messages", "queue", queueName)
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", queueName)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Queue] Message channel closed", "queue", queueName)
				return nil
			}
			handleDelivery(ctx, ch, msg, queueName, process)
		}
	}
}

func handleDelivery(ctx context.Context, ch Channel, msg amqp091.Delivery, queueName string, process Processor) {
	startTime := time.Now()

	job, err := DecodeJob(msg.Body)
	if err != nil {
		logger.Error("[Queue] Dropping malformed message", "queue", queueName, "err", err)
		deadLetter(ch, msg, queueName)
		return
	}

	log := logger.With("job", job.ID, "from", job.From, "to", job.To)
	log.Info("[Queue] Received job", "retries", Retries(msg.Headers))
	if err := process(ctx, job); err != nil {
		log.Error("[Queue] Error processing job", "err", err)
		HandleProcessingError(ch, msg, queueName)
		return
	}
	if err := msg.Ack(false); err != nil {
		log.Error("[Queue] Failed to ack message", "err", err)
	}

	d := time.Since(startTime)
	log.Info("[Queue] Job processed",
		"duration", fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60))
}

// Retries reads the retry count carried by headers.
func Retries(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleProcessingError moves a failed message to the retry queue with an
// increased retry count, or to the dead letter queue after maxRetries.
func HandleProcessingError(ch Channel, msg amqp091.Delivery, queueName string) {
	retries := Retries(msg.Headers)
	if retries >= maxRetries {
		deadLetter(ch, msg, queueName)
		return
	}

	retryName := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

func deadLetter(ch Channel, msg amqp091.Delivery, queueName string) {
	dlqName := queueName + "_dlq"
	logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName)
	pubErr := ch.Publish(
		"",
		dlqName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      msg.Headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
