package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JobsScanner/internal/domain"
)

type stubNotifier struct {
	err  error
	msgs []domain.Message
}

func (s *stubNotifier) Deliver(_ context.Context, msg domain.Message) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

func TestFanoutDeliversToAllChannels(t *testing.T) {
	t.Parallel()

	ok := &stubNotifier{}
	broken := &stubNotifier{err: errors.New("down")}
	fan := NewFanout(Named{"telegram", broken}, Named{"mail", ok}, Named{"none", nil})

	require.Equal(t, 2, fan.Len())

	err := fan.Deliver(context.Background(), domain.Message{Subject: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram: down")
	assert.Len(t, ok.msgs, 1, "a failing channel must not block the others")
	assert.Len(t, broken.msgs, 1)
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, n.Deliver(context.Background(), domain.Message{Subject: "New job"}))
	assert.Contains(t, buf.String(), "subject=\"New job\"")
}
