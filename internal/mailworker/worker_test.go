package mailworker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"bhms/pkg/queue"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	mu      sync.Mutex
	pending []*queue.MailMessage
	dead    []*queue.MailMessage
}

func (s *memorySource) Enqueue(_ context.Context, msg *queue.MailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, msg)
	return nil
}

func (s *memorySource) Dequeue(_ context.Context, _ time.Duration) (*queue.MailMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, queue.ErrEmpty
	}
	msg := s.pending[0]
	s.pending = s.pending[1:]
	return msg, nil
}

func (s *memorySource) DeadLetter(_ context.Context, msg *queue.MailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, msg)
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	to   []string
	fail error
}

func (f *fakeSender) Send(_ context.Context, toEmail, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.to = append(f.to, toEmail)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestProcessOneSends(t *testing.T) {
	source := &memorySource{}
	sender := &fakeSender{}
	w := NewWorker(source, sender, Options{}, quietLogger())
	ctx := context.Background()

	require.NoError(t, source.Enqueue(ctx, &queue.MailMessage{ID: "1", ToEmail: "a@example.com"}))

	handled, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"a@example.com"}, sender.to)

	handled, err = w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.False(t, handled)

	sent, failed, dead := w.Stats()
	assert.Equal(t, int64(1), sent)
	assert.Zero(t, failed)
	assert.Zero(t, dead)
}

func TestProcessOneRetriesThenDeadLetters(t *testing.T) {
	source := &memorySource{}
	sender := &fakeSender{fail: errors.New("connection refused")}
	w := NewWorker(source, sender, Options{MaxAttempts: 2}, quietLogger())
	ctx := context.Background()

	require.NoError(t, source.Enqueue(ctx, &queue.MailMessage{ID: "1", ToEmail: "a@example.com"}))

	_, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	require.Len(t, source.pending, 1)
	assert.Equal(t, 1, source.pending[0].Attempts)

	_, err = w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.Empty(t, source.pending)
	require.Len(t, source.dead, 1)
	assert.Equal(t, 2, source.dead[0].Attempts)
}

func TestStartStop(t *testing.T) {
	source := &memorySource{}
	sender := &fakeSender{}
	w := NewWorker(source, sender, Options{Concurrency: 2, PollTimeout: 10 * time.Millisecond}, quietLogger())
	ctx := context.Background()

	for _, to := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, source.Enqueue(ctx, &queue.MailMessage{ToEmail: to}))
	}

	w.Start(ctx)
	assert.Eventually(t, func() bool {
		sent, _, _ := w.Stats()
		return sent == 3
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	w.Stop(stopCtx)
}
