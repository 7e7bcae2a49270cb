// Package notify renders listing changes and delivers them to a chat.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/itcaat/kufarwatch/internal/metrics"
	"github.com/itcaat/kufarwatch/internal/models"
	"github.com/itcaat/kufarwatch/internal/util"
)

const (
	NewLabel     = "🆕 Новое объявление"
	UpdatedLabel = "🔄 Обновление"

	noPrice = "Цена не указана"
	noTime  = "Время не указано"
)

// Pause bounds between two messages
const (
	MinPause = 1 * time.Second
	MaxPause = 2 * time.Second
)

// Dispatcher sends one message per changed listing, new ones first
type Dispatcher struct {
	sender  Sender
	metrics *metrics.Metrics

	Sleep util.SleepFunc
	// Pause picks the delay after each message
	Pause func() time.Duration
}

// NewDispatcher creates a dispatcher. A nil sender disables delivery.
func NewDispatcher(sender Sender, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		metrics: m,
		Sleep:   util.Sleep,
		Pause:   func() time.Duration { return util.Jitter(MinPause, MaxPause) },
	}
}

// Notify delivers changes and returns how many messages were sent.
// Failed messages are logged and skipped. The only returned error is ctx's.
func (d *Dispatcher) Notify(ctx context.Context, changes models.Changes) (int, error) {
	if d.sender == nil {
		log.Println("Dispatcher: Telegram token or chat id is not set, notifications are disabled")
		return 0, nil
	}

	if changes.Empty() {
		log.Println("Dispatcher: No changes to notify")
		return 0, nil
	}

	sent := 0
	send := func(label string, items []models.Listing) error {
		for _, l := range items {
			err := d.sender.Send(ctx, FormatMessage(label, l))
			d.metrics.MessageSent(err)
			if err != nil {
				log.Printf("Dispatcher: Error sending message for %s: %v", l.Link, err)
			} else {
				sent++
			}

			if err := d.Sleep(ctx, d.Pause()); err != nil {
				return err
			}
		}
		return nil
	}

	if err := send(NewLabel, changes.New); err != nil {
		return sent, err
	}
	if err := send(UpdatedLabel, changes.Updated); err != nil {
		return sent, err
	}

	log.Printf("Dispatcher: Sent %d of %d messages\n", sent, changes.Total())
	return sent, nil
}

// FormatMessage renders one listing for the chat
func FormatMessage(label string, l models.Listing) string {
	price := noPrice
	if l.Price != nil && *l.Price != 0 {
		price = fmt.Sprintf("%d BYN", *l.Price)
	}

	published := noTime
	if l.PublishedAt != nil {
		published = l.PublishedAt.Format(models.TimeLayout)
	}

	var b strings.Builder
	b.WriteString(label + "\n")
	b.WriteString("📌 " + l.Title + "\n")
	b.WriteString("💰 " + price + "\n")
	b.WriteString("📍 " + l.Region + "\n")
	b.WriteString("🕒 " + published + "\n")
	b.WriteString("🔗 " + l.Link)
	return b.String()
}
