// Package mailworker 消费Redis邮件发件箱并通过SMTP投递。
package mailworker

import (
	"context"
	"errors"
	"sync"
	"time"

	"bhms/internal/metrics"
	"bhms/pkg/queue"

	"github.com/sirupsen/logrus"
)

// Source 邮件来源，由 queue.MailQueue 实现
type Source interface {
	Enqueue(ctx context.Context, msg *queue.MailMessage) error
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.MailMessage, error)
	DeadLetter(ctx context.Context, msg *queue.MailMessage) error
}

// Sender 邮件发送方，由 mailer.SMTPMailer 实现
type Sender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

// Options 消费参数
type Options struct {
	Concurrency int
	MaxAttempts int
	PollTimeout time.Duration
}

// Worker 邮件消费者
type Worker struct {
	source Source
	sender Sender
	opts   Options
	log    *logrus.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	mu        sync.Mutex
	sent      int64
	failed    int64
	deadCount int64
}

func NewWorker(source Source, sender Sender, opts Options, log *logrus.Logger) *Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Second
	}
	return &Worker{
		source: source,
		sender: sender,
		opts:   opts,
		log:    log,
	}
}

// Start 启动消费者
func (w *Worker) Start(ctx context.Context) {
	w.ctx, w.cancelFunc = context.WithCancel(ctx)

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.consume(i)
	}

	w.log.WithField("concurrency", w.opts.Concurrency).Info("邮件消费者启动成功")
}

// Stop 停止消费者，等待正在发送的邮件完成或超时
func (w *Worker) Stop(ctx context.Context) {
	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("邮件消费者已停止")
	case <-ctx.Done():
		w.log.Warn("停止超时，强制退出")
	}
}

// Stats 已发送、失败重试、进入死信的数量
func (w *Worker) Stats() (sent, failed, dead int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sent, w.failed, w.deadCount
}

func (w *Worker) consume(consumerID int) {
	defer w.wg.Done()
	log := w.log.WithField("consumer_id", consumerID)

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if _, err := w.ProcessOne(w.ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("处理邮件失败")
				time.Sleep(time.Second)
			}
		}
	}
}

// ProcessOne 处理一封邮件，队列为空时返回 false
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	msg, err := w.source.Dequeue(ctx, w.opts.PollTimeout)
	if errors.Is(err, queue.ErrEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	log := w.log.WithFields(logrus.Fields{
		"mail_id":  msg.ID,
		"to":       msg.ToEmail,
		"attempts": msg.Attempts,
	})

	if err := w.sender.Send(ctx, msg.ToEmail, msg.ToName, msg.Subject, msg.HTMLBody); err != nil {
		metrics.Notifications.WithLabelValues("smtp", "failed").Inc()
		msg.Attempts++
		if msg.Attempts >= w.opts.MaxAttempts {
			log.WithError(err).Warn("邮件多次发送失败，进入死信队列")
			w.count(&w.deadCount)
			return true, w.source.DeadLetter(ctx, msg)
		}
		log.WithError(err).Warn("邮件发送失败，重新入队")
		w.count(&w.failed)
		return true, w.source.Enqueue(ctx, msg)
	}

	metrics.Notifications.WithLabelValues("smtp", "sent").Inc()
	w.count(&w.sent)
	log.Info("邮件发送成功")
	return true, nil
}

func (w *Worker) count(counter *int64) {
	w.mu.Lock()
	*counter++
	w.mu.Unlock()
}
