package mailer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	err   error
	delay time.Duration
}

func (f *fakeSender) SendInvitationEmail(ctx context.Context, to, teamName, inviteLink string) error {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+"|"+teamName+"|"+inviteLink)
	return nil
}

func TestAsyncDispatcher_Sends(t *testing.T) {
	sender := &fakeSender{}
	d := NewAsyncDispatcher(sender, time.Second, zap.NewNop())

	d.NotifyInvitation("a@example.com", "Pwners", "https://x/1")
	d.NotifyInvitation("b@example.com", "Pwners", "https://x/2")

	require.NoError(t, d.Wait(context.Background()))
	assert.ElementsMatch(t, []string{
		"a@example.com|Pwners|https://x/1",
		"b@example.com|Pwners|https://x/2",
	}, sender.sent)
}

func TestAsyncDispatcher_FailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewAsyncDispatcher(&fakeSender{err: errors.New("smtp down")}, time.Second, zap.New(core))

	d.NotifyInvitation("a@example.com", "Pwners", "https://x/1")
	require.NoError(t, d.Wait(context.Background()))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "invitation email not sent", logs.All()[0].Message)
}

func TestAsyncDispatcher_Timeout(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewAsyncDispatcher(&fakeSender{delay: 500 * time.Millisecond}, 20*time.Millisecond, zap.New(core))

	d.NotifyInvitation("a@example.com", "Pwners", "https://x/1")
	require.NoError(t, d.Wait(context.Background()))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "invitation email timed out", logs.All()[0].Message)
}

func TestBuildInvitation(t *testing.T) {
	m := buildInvitation("noreply@ctf.example", "CTF", "bob@example.com", "<Pwners>", "https://ctf.example/inv/1")

	assert.Equal(t, []string{"bob@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"You are invited to join <Pwners>"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "https://ctf.example/inv/1")
	assert.Contains(t, buf.String(), `"<Pwners>"`)
}

func TestNoopSender(t *testing.T) {
	assert.NoError(t, NoopSender{}.SendInvitationEmail(context.Background(), "a@example.com", "t", "l"))
}
