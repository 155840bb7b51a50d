package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"photoshare/internal/platform/rabbitmq"
)

// Sender delivers one rendered mail.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// EmailWorker drains the email queue and delivers confirmation and password
// reset mail. Delivery failures are logged and the message is dropped; the
// flows that enqueue mail treat it as fire-and-forget.
type EmailWorker struct {
	conn      *amqp.Connection
	sender    Sender
	queueName string
	baseURL   string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEmailWorker(conn *amqp.Connection, sender Sender, queueName, baseURL string) *EmailWorker {
	return &EmailWorker{
		conn:      conn,
		sender:    sender,
		queueName: queueName,
		baseURL:   baseURL,
	}
}

func (w *EmailWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var job rabbitmq.EmailJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					log.Printf("worker decode email job failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				subject, body := w.render(job)
				if err := w.sender.Send(job.To, subject, body); err != nil {
					log.Printf("worker send %s mail to %s failed: %v", job.Kind, job.To, err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *EmailWorker) render(job rabbitmq.EmailJob) (string, string) {
	switch job.Kind {
	case rabbitmq.EmailKindPasswordReset:
		link := fmt.Sprintf("%s/api/v1/auth/password-reset?token=%s", w.baseURL, job.Token)
		body := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Someone requested a password reset for your PhotoShare account.
If that was you, follow the link below. Otherwise you can ignore this mail.</p>
<p><a href="%s">Reset your password</a></p>
</body></html>`, job.Username, link)
		return "PhotoShare password reset", body
	default:
		link := fmt.Sprintf("%s/api/v1/auth/confirm?token=%s", w.baseURL, job.Token)
		body := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Welcome to PhotoShare. Confirm your email address to finish setting up
your account.</p>
<p><a href="%s">Confirm email</a></p>
</body></html>`, job.Username, link)
		return "Confirm your PhotoShare email", body
	}
}

func (w *EmailWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
