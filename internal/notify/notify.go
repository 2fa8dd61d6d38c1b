// Package notify: исходящие уведомления во внешние каналы.
package notify

import (
	"context"
	"sync"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// ChannelIdentity: адрес получателя в конкретном канале (для Telegram: chat id).
type ChannelIdentity struct {
	Channel model.Channel
	Address string
}

// Dispatcher отправляет сообщение по уже разрешённому адресу.
type Dispatcher interface {
	Send(ctx context.Context, to ChannelIdentity, message string) error
}

// Registry выбирает Dispatcher по каналу.
type Registry struct {
	mu          sync.RWMutex
	dispatchers map[model.Channel]Dispatcher
}

func NewRegistry() *Registry {
	return &Registry{dispatchers: make(map[model.Channel]Dispatcher)}
}

func (r *Registry) Register(ch model.Channel, d Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatchers[ch] = d
}

func (r *Registry) Supports(ch model.Channel) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.dispatchers[ch]
	return ok
}

// Send реализует Dispatcher поверх зарегистрированных каналов.
func (r *Registry) Send(ctx context.Context, to ChannelIdentity, message string) error {
	r.mu.RLock()
	d, ok := r.dispatchers[to.Channel]
	r.mu.RUnlock()
	if !ok {
		return &errs.DispatchError{Channel: string(to.Channel), Err: errs.ErrNoDispatcher}
	}
	if err := d.Send(ctx, to, message); err != nil {
		metrics.Dispatches.WithLabelValues(string(to.Channel), "failed").Inc()
		return err
	}
	metrics.Dispatches.WithLabelValues(string(to.Channel), "sent").Inc()
	return nil
}
