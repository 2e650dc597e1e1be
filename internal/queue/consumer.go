package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// StartSettlementConsumer connects to the broker at url, declares the
// settlement.events queue (durable) and appends every message to
// <logDir>/settlement.log as one line.  It reconnects with backoff until ctx
// is cancelled, which is the only way it returns.
func StartSettlementConsumer(ctx context.Context, url, logDir string) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warnf("settlement-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logDir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnf("settlement-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warnf("settlement-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(SettlementQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(SettlementQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(d.Body, logDir); err != nil {
				log.Errorf("settlement-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // no requeue, avoids a poison loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one settlement event and appends it to the log.
func HandleMessage(body []byte, logDir string) error {
	var ev SettlementEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "settlement.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event as a single log line.
func FormatLine(ev SettlementEvent) string {
	seats := make([]string, len(ev.Seats))
	for i, s := range ev.Seats {
		seats[i] = fmt.Sprint(s)
	}
	line := fmt.Sprintf("[%s] %s | event_id=%s | operator=%q | draw_id=%d | sale_id=%d | seats=[%s]",
		ev.OccurredAt.Format(time.RFC3339), ev.Type, ev.ID, ev.Operator, ev.DrawID, ev.SaleID, strings.Join(seats, ","))
	if ev.Amount > 0 {
		line += fmt.Sprintf(" | amount=%d", ev.Amount)
	}
	if ev.Detail != "" {
		line += fmt.Sprintf(" | detail=%q", ev.Detail)
	}
	return line + "\n"
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
