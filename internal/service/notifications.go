package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const notifyTimeout = 10 * time.Second

// enqueue ставит уведомление в очередь, не блокируясь. При полной очереди
// событие отбрасывается.
func (s *Service) enqueue(text string) {
	if s.notifier == nil {
		return
	}

	select {
	case s.events <- text:
	default:
		s.logger.Warn("notification queue is full, dropping event")
	}
}

// StartNotifications запускает фоновую отправку уведомлений из очереди.
func (s *Service) StartNotifications(ctx context.Context) {
	if s.notifier == nil {
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case text := <-s.events:
				s.deliver(ctx, text)
			}
		}
	}()
}

func (s *Service) deliver(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.Error("failed to send notification", zap.Error(err))
	}
}
