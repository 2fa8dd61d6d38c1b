package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotAPI изображает api.telegram.org и запоминает тела sendMessage.
type fakeBotAPI struct {
	mu     sync.Mutex
	bodies []string
	fail   bool
}

func (f *fakeBotAPI) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
		return
	}
	f.mu.Lock()
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()
	if f.fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":555,"type":"private"},"text":"ok"}}`))
}

func newFakeDispatcher(t *testing.T, fake *fakeBotAPI) *Dispatcher {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)
	d, err := NewDispatcher("123456:TEST-token", srv.URL)
	require.NoError(t, err)
	return d
}

func TestSend_PostsToChat(t *testing.T) {
	fake := &fakeBotAPI{}
	d := newFakeDispatcher(t, fake)

	err := d.Send(context.Background(), notify.ChannelIdentity{Channel: model.ChannelTelegram, Address: "555"}, "Fixed it")
	require.NoError(t, err)

	require.Len(t, fake.bodies, 1)
	assert.Contains(t, fake.bodies[0], "555")
	assert.Contains(t, fake.bodies[0], "Fixed it")
}

func TestSend_RemoteErrorIsDispatchError(t *testing.T) {
	fake := &fakeBotAPI{fail: true}
	d := newFakeDispatcher(t, fake)

	err := d.Send(context.Background(), notify.ChannelIdentity{Channel: model.ChannelTelegram, Address: "555"}, "hello")
	require.Error(t, err)
	var de *errs.DispatchError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, "telegram", de.Channel)
}

func TestSend_WithoutTokenIsConfigurationError(t *testing.T) {
	d, err := NewDispatcher("", "")
	require.NoError(t, err)
	assert.False(t, d.Configured())

	err = d.Send(context.Background(), notify.ChannelIdentity{Channel: model.ChannelTelegram, Address: "555"}, "hello")
	assert.True(t, errs.IsConfiguration(err))
}

func TestSend_Validation(t *testing.T) {
	d := newFakeDispatcher(t, &fakeBotAPI{})
	err := d.Send(context.Background(), notify.ChannelIdentity{Channel: model.ChannelTelegram}, "hello")
	assert.True(t, errs.IsValidation(err))
	err = d.Send(context.Background(), notify.ChannelIdentity{Channel: model.ChannelTelegram, Address: "1"}, "")
	assert.True(t, errs.IsValidation(err))
}

func TestChatID(t *testing.T) {
	assert.Equal(t, int64(555), chatID("555"))
	assert.Equal(t, int64(-100123), chatID("-100123"))
	assert.Equal(t, "@support", chatID("@support"))
}
