package mailer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AsyncDispatcher отправляет письма в фоне. Ошибки отправки только логируются
type AsyncDispatcher struct {
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewAsyncDispatcher создает диспетчер с ограничением времени на одно письмо
func NewAsyncDispatcher(sender Sender, timeout time.Duration, logger *zap.Logger) *AsyncDispatcher {
	return &AsyncDispatcher{
		sender:  sender,
		timeout: timeout,
		logger:  logger.Named("mailer"),
	}
}

// NotifyInvitation ставит письмо в отправку и сразу возвращает управление
func (d *AsyncDispatcher) NotifyInvitation(to, teamName, inviteLink string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- d.sender.SendInvitationEmail(ctx, to, teamName, inviteLink)
		}()

		select {
		case err := <-done:
			if err != nil {
				d.logger.Warn("invitation email not sent", zap.String("to", to), zap.Error(err))
				return
			}
			d.logger.Debug("invitation email sent", zap.String("to", to))
		case <-ctx.Done():
			d.logger.Warn("invitation email timed out", zap.String("to", to), zap.Duration("timeout", d.timeout))
		}
	}()
}

// Wait ждет завершения отправок, начатых до вызова, но не дольше чем позволяет ctx
func (d *AsyncDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
