package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sender доставляет текст в webhook, threadKey может быть пустым
type Sender interface {
	Send(ctx context.Context, webhookURL, text, threadKey string) error
}

// Notifier форматирует события и отправляет их в фоне: одна попытка, без повторов.
// Ошибки доставки только логируются, вызывающий код их не видит.
type Notifier struct {
	formatter *Formatter
	sender    Sender
	timeout   time.Duration
	log       *zap.Logger
	wg        sync.WaitGroup
}

func NewNotifier(formatter *Formatter, sender Sender, timeout time.Duration, log *zap.Logger) *Notifier {
	return &Notifier{
		formatter: formatter,
		sender:    sender,
		timeout:   timeout,
		log:       log,
	}
}

func (n *Notifier) Notify(ctx context.Context, ev Event) {
	if ev.Room == nil || ev.Room.WebhookURL == "" {
		n.log.Debug("notification skipped: room has no webhook", zap.String("event", string(ev.Kind)))
		return
	}

	threadKey := ""
	if ev.Review != nil {
		threadKey = ev.Review.Id
	}

	// Запрос пользователя может завершиться раньше отправки
	bg := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		sendCtx, cancel := context.WithTimeout(bg, n.timeout)
		defer cancel()

		text := n.formatter.Format(sendCtx, ev)
		if text == "" {
			return
		}

		if err := n.sender.Send(sendCtx, ev.Room.WebhookURL, text, threadKey); err != nil {
			notificationsTotal.WithLabelValues(string(ev.Kind), "failed").Inc()
			n.log.Warn("notification delivery failed",
				zap.String("event", string(ev.Kind)),
				zap.String("room", ev.Room.Slug),
				zap.String("thread_key", threadKey),
				zap.Error(err),
			)
			return
		}
		notificationsTotal.WithLabelValues(string(ev.Kind), "sent").Inc()
		n.log.Debug("notification sent",
			zap.String("event", string(ev.Kind)),
			zap.String("room", ev.Room.Slug),
		)
	}()
}

// Wait ждет завершения отправок, запущенных до вызова
func (n *Notifier) Wait() {
	n.wg.Wait()
}
