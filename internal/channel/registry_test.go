// ABOUTME: Tests for URI resolution, match ordering, and the built-in factories.
// ABOUTME: Uses the SQLite queue engine and httptest servers as destinations.

package channel

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porterhq/agentq/internal/queue"
)

func newTestQueueEngine(t *testing.T) *queue.SQLiteEngine {
	t.Helper()
	e, err := queue.NewSQLiteEngine(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestRegistry_Resolve_NoMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(NewWebhookFactory(0, nil))

	_, err := r.Resolve("smoke-signal://hilltop")
	assert.ErrorIs(t, err, ErrNoChannelMatch)
}

func TestRegistry_Resolve_FirstMatchWins(t *testing.T) {
	r := NewRegistry()
	first := &stubFactory{scheme: "queue://", ch: &stubChannel{}}
	second := &stubFactory{scheme: "queue://", ch: &stubChannel{}}
	r.Register(first)
	r.Register(second)

	ch, err := r.Resolve("queue://out")
	require.NoError(t, err)
	assert.Same(t, first.ch, ch)
}

func TestQueueFactory_ResolvesQueueName(t *testing.T) {
	e := newTestQueueEngine(t)
	r := NewRegistry()
	r.Register(NewQueueFactory(e))

	ch, err := r.Resolve("queue://my-responses")
	require.NoError(t, err)

	require.NoError(t, ch.Send(context.Background(), []byte(`{"ok":true}`)))

	job, err := e.Fetch(context.Background(), "my-responses")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, `{"ok":true}`, string(job.Payload))
}

func TestQueueFactory_StripsLeadingSlash(t *testing.T) {
	e := newTestQueueEngine(t)
	f := NewQueueFactory(e)

	ch, err := f.Create("queue:///with-slash")
	require.NoError(t, err)
	require.NoError(t, ch.Send(context.Background(), []byte("x")))

	job, err := e.Fetch(context.Background(), "with-slash")
	require.NoError(t, err)
	require.NotNil(t, job)
}

func TestQueueFactory_EmptyName(t *testing.T) {
	f := NewQueueFactory(newTestQueueEngine(t))
	_, err := f.Create("queue://")
	assert.Error(t, err)
}

func TestWebhookChannel_PostsJSON(t *testing.T) {
	var gotBody []byte
	var gotContentType, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		gotHeader = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := NewWebhookFactory(5*time.Second, map[string]string{"X-Api-Key": "sekrit"})
	require.True(t, f.Matches("webhook://"+server.URL))

	ch, err := f.Create("webhook://" + server.URL)
	require.NoError(t, err)

	require.NoError(t, ch.Send(context.Background(), []byte(`{"type":"result"}`)))
	assert.Equal(t, `{"type":"result"}`, string(gotBody))
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "sekrit", gotHeader)
}

func TestWebhookChannel_Non2xxIsDeliveryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewWebhookFactory(5*time.Second, nil)
	ch, err := f.Create("webhook://" + server.URL)
	require.NoError(t, err)

	err = ch.Send(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookFactory_KeepsLiteralURL(t *testing.T) {
	f := NewWebhookFactory(0, nil)
	assert.True(t, f.Matches("webhook://https://x.test/cb"))

	ch, err := f.Create("webhook://https://x.test/cb")
	require.NoError(t, err)

	wc, ok := ch.(*webhookChannel)
	require.True(t, ok)
	assert.Equal(t, "https://x.test/cb", wc.url)
}

func TestDiscordFactory_ParsesChannelID(t *testing.T) {
	f, err := NewDiscordFactory("fake-token")
	require.NoError(t, err)

	assert.True(t, f.Matches("discord://123456789"))
	assert.False(t, f.Matches("queue://123456789"))

	ch, err := f.Create("discord://123456789")
	require.NoError(t, err)

	dc, ok := ch.(*discordChannel)
	require.True(t, ok)
	assert.Equal(t, "123456789", dc.channelID)

	_, err = f.Create("discord://")
	assert.Error(t, err)
}

type stubFactory struct {
	scheme string
	ch     Channel
}

func (f *stubFactory) Matches(uri string) bool {
	return len(uri) >= len(f.scheme) && uri[:len(f.scheme)] == f.scheme
}

func (f *stubFactory) Create(uri string) (Channel, error) {
	return f.ch, nil
}

type stubChannel struct {
	sent [][]byte
}

func (c *stubChannel) Send(ctx context.Context, payload []byte) error {
	c.sent = append(c.sent, payload)
	return nil
}
