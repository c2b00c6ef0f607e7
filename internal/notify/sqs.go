// Package notify provides SQS-based dispatch of traveler notifications to
// the downstream delivery workers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"tripguardian/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// DispatchMessage is the queue envelope handed to the delivery workers. One
// message is produced per (notification, channel) pair; the worker for each
// channel filters on the channel attribute.
type DispatchMessage struct {
	TripID         string              `json:"trip_id"`
	NotificationID string              `json:"notification_id"`
	Channel        types.ChannelType   `json:"channel"`
	Severity       types.AlertSeverity `json:"severity"`
	Title          string              `json:"title"`
	Message        string              `json:"message"`
	SentAt         time.Time           `json:"sent_at"`
}

// SQSDispatcher sends rendered notifications to the delivery fan-out queue.
type SQSDispatcher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewSQSDispatcher creates a dispatcher targeting the given queue URL.
func NewSQSDispatcher(client SQSSender, queueURL string, logger *slog.Logger) *SQSDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSDispatcher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Dispatch serializes the notification into a DispatchMessage and sends it
// to the delivery queue with channel and severity message attributes.
func (d *SQSDispatcher) Dispatch(ctx context.Context, tripID string, notification types.NotificationRecord, channel types.ChannelType) error {
	msg := DispatchMessage{
		TripID:         tripID,
		NotificationID: notification.ID,
		Channel:        channel,
		Severity:       notification.Severity,
		Title:          notification.Title,
		Message:        notification.Message,
		SentAt:         notification.Timestamp,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: failed to marshal dispatch message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"channel": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(channel)),
			},
			"severity": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(notification.Severity)),
			},
		},
	}

	if _, err := d.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("notify: failed to send dispatch message to %s: %w", d.queueURL, err)
	}

	d.logger.InfoContext(ctx, "notification dispatched",
		"queue_url", d.queueURL,
		"trip_id", tripID,
		"notification_id", notification.ID,
		"channel", string(channel),
		"severity", string(notification.Severity),
	)

	return nil
}

// LogDispatcher is a no-queue fallback used in local development and when
// no queue URL is configured. It records the dispatch in the log and
// reports success.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the notification instead of delivering it.
func (d *LogDispatcher) Dispatch(ctx context.Context, tripID string, notification types.NotificationRecord, channel types.ChannelType) error {
	d.logger.InfoContext(ctx, "notification dispatch (log only)",
		"trip_id", tripID,
		"notification_id", notification.ID,
		"channel", string(channel),
		"severity", string(notification.Severity),
		"title", notification.Title,
	)
	return nil
}
