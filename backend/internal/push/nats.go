package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
)

const subjectPrefix = "thinkflow.notifications."

// Subject is the NATS subject carrying notifications for userID
func Subject(userID string) string {
	return subjectPrefix + userID
}

// Bridge fans notifications out through NATS so a user connected to any
// instance receives pushes produced on every other instance.
type Bridge struct {
	nc     *nats.Conn
	hub    *Hub
	sub    *nats.Subscription
	logger *zap.Logger
}

// NewBridge creates a bridge delivering into hub
func NewBridge(nc *nats.Conn, hub *Hub, log *zap.Logger) *Bridge {
	return &Bridge{nc: nc, hub: hub, logger: log.Named("push.nats")}
}

// Start subscribes to every user's subject
func (b *Bridge) Start() error {
	sub, err := b.nc.Subscribe(subjectPrefix+"*", b.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s*: %w", subjectPrefix, err)
	}
	b.sub = sub
	b.logger.Info("Listening for notifications", zap.String("subject", sub.Subject))
	return nil
}

// Stop drops the subscription
func (b *Bridge) Stop() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}

// Push publishes the notification with the current trace context in the headers
func (b *Bridge) Push(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := &nats.Msg{
		Subject: Subject(n.UserID),
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	return b.nc.PublishMsg(msg)
}

func (b *Bridge) handle(msg *nats.Msg) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))
	_, span := otel.Tracer("thinkflow/push").Start(ctx, "push.deliver")
	defer span.End()

	userID := strings.TrimPrefix(msg.Subject, subjectPrefix)
	delivered := b.hub.Deliver(userID, msg.Data)
	b.logger.Debug("Delivered notification from bus",
		zap.String("user_id", userID),
		zap.Int("connections", delivered),
	)
}
