package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	sent []ChannelIdentity
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, to ChannelIdentity, _ string) error {
	d.sent = append(d.sent, to)
	return d.err
}

func TestRegistry_RoutesByChannel(t *testing.T) {
	tg := &recordingDispatcher{}
	r := NewRegistry()
	r.Register(model.ChannelTelegram, tg)

	assert.True(t, r.Supports(model.ChannelTelegram))
	assert.False(t, r.Supports(model.ChannelWeb))

	require.NoError(t, r.Send(context.Background(), ChannelIdentity{Channel: model.ChannelTelegram, Address: "555"}, "hi"))
	require.Len(t, tg.sent, 1)
	assert.Equal(t, "555", tg.sent[0].Address)
}

func TestRegistry_UnknownChannel(t *testing.T) {
	r := NewRegistry()
	err := r.Send(context.Background(), ChannelIdentity{Channel: model.ChannelVK, Address: "1"}, "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNoDispatcher))
	var de *errs.DispatchError
	assert.True(t, errors.As(err, &de))
}

func TestRegistry_PropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register(model.ChannelTelegram, &recordingDispatcher{err: boom})
	err := r.Send(context.Background(), ChannelIdentity{Channel: model.ChannelTelegram, Address: "1"}, "hi")
	assert.ErrorIs(t, err, boom)
}
