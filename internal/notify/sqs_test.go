package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"tripguardian/internal/types"
)

// mockSQSSender captures SendMessage calls for test assertions.
type mockSQSSender struct {
	calls []*sqs.SendMessageInput
	err   error
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{}, nil
}

const testQueueURL = "https://sqs.eu-west-1.amazonaws.com/123456789/trip-notifications"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func sampleNotification() types.NotificationRecord {
	return types.NotificationRecord{
		ID:        "notif_1",
		Timestamp: time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC),
		Severity:  types.SeverityHigh,
		Title:     "flood warning",
		Message:   "flooding reported near Galle Fort",
		Channels:  []types.ChannelType{types.ChannelPush},
	}
}

func TestDispatch_SendsEnvelope(t *testing.T) {
	mock := &mockSQSSender{}
	dispatcher := NewSQSDispatcher(mock, testQueueURL, quietLogger())

	err := dispatcher.Dispatch(context.Background(), "trip_galle", sampleNotification(), types.ChannelPush)
	if err != nil {
		t.Fatalf("Dispatch returned unexpected error: %v", err)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("SendMessage called %d times, want 1", len(mock.calls))
	}

	input := mock.calls[0]
	if got := *input.QueueUrl; got != testQueueURL {
		t.Errorf("queue URL = %s, want %s", got, testQueueURL)
	}

	var msg DispatchMessage
	if err := json.Unmarshal([]byte(*input.MessageBody), &msg); err != nil {
		t.Fatalf("message body is not valid JSON: %v", err)
	}
	if msg.TripID != "trip_galle" || msg.NotificationID != "notif_1" {
		t.Errorf("envelope trip=%s notification=%s, want trip_galle/notif_1", msg.TripID, msg.NotificationID)
	}
	if msg.Channel != types.ChannelPush {
		t.Errorf("envelope channel = %s, want push", msg.Channel)
	}
	if msg.Title != "flood warning" {
		t.Errorf("envelope title = %s, want flood warning", msg.Title)
	}
	if !msg.SentAt.Equal(time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("envelope sent_at = %v, want the notification timestamp", msg.SentAt)
	}
}

func TestDispatch_SetsMessageAttributes(t *testing.T) {
	mock := &mockSQSSender{}
	dispatcher := NewSQSDispatcher(mock, testQueueURL, quietLogger())

	if err := dispatcher.Dispatch(context.Background(), "trip_galle", sampleNotification(), types.ChannelEmail); err != nil {
		t.Fatalf("Dispatch returned unexpected error: %v", err)
	}

	attrs := mock.calls[0].MessageAttributes
	channel, ok := attrs["channel"]
	if !ok || *channel.StringValue != "email" {
		t.Errorf("channel attribute = %+v, want email", channel)
	}
	severity, ok := attrs["severity"]
	if !ok || *severity.StringValue != "high" {
		t.Errorf("severity attribute = %+v, want high", severity)
	}
}

func TestDispatch_SendFailure(t *testing.T) {
	mock := &mockSQSSender{err: errors.New("throttled")}
	dispatcher := NewSQSDispatcher(mock, testQueueURL, quietLogger())

	err := dispatcher.Dispatch(context.Background(), "trip_galle", sampleNotification(), types.ChannelPush)
	if err == nil {
		t.Fatal("expected an error when SendMessage fails")
	}
	if !strings.Contains(err.Error(), testQueueURL) {
		t.Errorf("error %q does not name the queue", err)
	}
}

func TestLogDispatcher_AlwaysSucceeds(t *testing.T) {
	dispatcher := NewLogDispatcher(quietLogger())

	if err := dispatcher.Dispatch(context.Background(), "trip_galle", sampleNotification(), types.ChannelSMS); err != nil {
		t.Fatalf("LogDispatcher returned %v, want nil", err)
	}
}
