package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gosuda/tenancy/internal/domain"
	"github.com/gosuda/tenancy/internal/tenant"
)

// Events publishes customer changes on a per-tenant channel.
type Events struct {
	client *Client
}

func NewEvents(client *Client) *Events {
	return &Events{client: client}
}

// Publish sends ev on the channel of the tenant bound to ctx.
func (e *Events) Publish(ctx context.Context, ev domain.CustomerEvent) error {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("events.Publish: %w", err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events.Publish: encode: %w", err)
	}

	if err := e.client.Publish(ctx, CustomerChannel(t), payload); err != nil {
		return fmt.Errorf("events.Publish: %w", err)
	}
	return nil
}

// Subscribe streams events of the tenant bound to ctx. Undecodable payloads
// are logged and skipped.
func (e *Events) Subscribe(ctx context.Context) (<-chan domain.CustomerEvent, func(), error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("events.Subscribe: %w", err)
	}

	raw, cleanup, err := e.client.Subscribe(ctx, CustomerChannel(t))
	if err != nil {
		return nil, nil, fmt.Errorf("events.Subscribe: %w", err)
	}

	out := make(chan domain.CustomerEvent, cap(raw))
	go func() {
		defer close(out)
		for payload := range raw {
			ev, err := decodeEvent(payload)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("dropping customer event")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup, nil
}

func decodeEvent(payload []byte) (domain.CustomerEvent, error) {
	var ev domain.CustomerEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.CustomerEvent{}, fmt.Errorf("decode customer event: %w", err)
	}
	if ev.Type == "" || ev.Customer == nil {
		return domain.CustomerEvent{}, fmt.Errorf("decode customer event: incomplete payload %q", payload)
	}
	return ev, nil
}
