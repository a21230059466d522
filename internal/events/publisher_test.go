package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestEncode(t *testing.T) {
	at := time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)
	msg, err := encode(Event{
		Type:       TypeProductLowStock,
		UserID:     7,
		OccurredAt: at,
		Payload:    ProductLowStock{ProductID: 3, InternalCode: "PRD-ABCD2345", StockQuantity: 1, Threshold: 5},
	})
	if err != nil {
		t.Fatalf("encode() unexpected error: %v", err)
	}

	if msg.ContentType != "application/json" {
		t.Errorf("ContentType = %q", msg.ContentType)
	}
	if msg.DeliveryMode != amqp.Persistent {
		t.Errorf("DeliveryMode = %d, want persistent", msg.DeliveryMode)
	}
	if msg.Type != TypeProductLowStock || !msg.Timestamp.Equal(at) {
		t.Errorf("Type/Timestamp = %q/%v", msg.Type, msg.Timestamp)
	}

	var decoded struct {
		Type    string `json:"type"`
		UserID  int64  `json:"user_id"`
		Payload struct {
			ProductID     int64 `json:"product_id"`
			StockQuantity int   `json:"stock_quantity"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.Type != TypeProductLowStock || decoded.UserID != 7 || decoded.Payload.ProductID != 3 {
		t.Errorf("decoded body = %+v", decoded)
	}
}

func TestEncode_DefaultsTimestamp(t *testing.T) {
	msg, err := encode(Event{Type: TypeUserRegistered, Payload: UserRegistered{Email: "a@x.com"}})
	if err != nil {
		t.Fatalf("encode() unexpected error: %v", err)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should default to now")
	}
}

func TestEncode_RequiresType(t *testing.T) {
	if _, err := encode(Event{}); err == nil {
		t.Error("expected error for missing event type")
	}
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), Event{Type: TypeUserRegistered}); err != nil {
		t.Errorf("Publish() = %v, want nil", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestDialAMQP_EmptyURL(t *testing.T) {
	if _, err := DialAMQP(""); err == nil {
		t.Error("expected error for empty url")
	}
}

func TestAMQPPublisher_ClosedRejectsPublish(t *testing.T) {
	dials := 0
	p := newAMQPPublisher("amqp://broker", func(string) (*amqp.Connection, error) {
		dials++
		return nil, errors.New("unreachable")
	})

	if err := p.Close(); err != nil {
		t.Errorf("Close() on unconnected publisher = %v, want nil", err)
	}
	err := p.Publish(context.Background(), Event{Type: TypeUserRegistered})
	if !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish() error = %v, want ErrPublisherClosed", err)
	}
	if dials != 0 {
		t.Errorf("closed publisher dialed %d times", dials)
	}
}

func TestAMQPPublisher_RedialsLostChannel(t *testing.T) {
	dials := 0
	p := newAMQPPublisher("amqp://broker", func(url string) (*amqp.Connection, error) {
		dials++
		if url != "amqp://broker" {
			t.Errorf("dial url = %q", url)
		}
		return nil, errors.New("connection refused")
	})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	ctx := context.Background()
	ev := Event{Type: TypeProductLowStock}

	err := p.Publish(ctx, ev)
	if err == nil || errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("Publish() error = %v, want a dial error", err)
	}
	if dials != 1 {
		t.Fatalf("dials = %d, want 1", dials)
	}

	if err := p.Publish(ctx, ev); !errors.Is(err, ErrBrokerUnavailable) {
		t.Errorf("Publish() inside redial interval = %v, want ErrBrokerUnavailable", err)
	}
	if dials != 1 {
		t.Errorf("dials = %d, want no extra attempt inside the interval", dials)
	}

	now = now.Add(redialInterval)
	_ = p.Publish(ctx, ev)
	if dials != 2 {
		t.Errorf("dials = %d, want a second attempt after the interval", dials)
	}
}
