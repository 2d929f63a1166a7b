package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// subjectPrefix namespaces inventory events. One subject per product keeps
// subscriptions scoped to exactly the products in a cart.
const subjectPrefix = "inventory.product."

// NATSBus implements Subscriber and Publisher over a NATS connection.
type NATSBus struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Compile-time checks.
var (
	_ Subscriber = (*NATSBus)(nil)
	_ Publisher  = (*NATSBus)(nil)
)

// ConnectNATS establishes a NATS connection with reconnect handling and
// returns a bus over it.
func ConnectNATS(url string, logger *slog.Logger) (*NATSBus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NATSBus{conn: conn, logger: logger}, nil
}

func subjectFor(productID uuid.UUID) string {
	return subjectPrefix + productID.String()
}

// Subscribe delivers events published for the given product.
func (b *NATSBus) Subscribe(productID uuid.UUID, fn Handler) (Subscription, error) {
	sub, err := b.conn.Subscribe(subjectFor(productID), func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.logger.Warn("dropping malformed inventory event",
				"subject", msg.Subject, "error", err)
			return
		}
		fn(event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subjectFor(productID), err)
	}
	return &natsSubscription{sub: sub}, nil
}

// Publish emits an event on the product's subject.
func (b *NATSBus) Publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory event: %w", err)
	}
	if err := b.conn.Publish(subjectFor(event.ProductID), data); err != nil {
		return fmt.Errorf("failed to publish inventory event: %w", err)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (b *NATSBus) Close() {
	if err := b.conn.Drain(); err != nil {
		b.logger.Warn("nats drain failed", "error", err)
	}
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() error {
	if !s.sub.IsValid() {
		return nil
	}
	return s.sub.Unsubscribe()
}
