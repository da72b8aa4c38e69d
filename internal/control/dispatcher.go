// SPDX-License-Identifier: AGPL-3.0-or-later
// liftof-cc - TOF online data-acquisition and event-assembly backbone
// Copyright (C) 2026 GAPS TOF collaboration

package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// CommandTopic and AckTopic are the pubsub topics the control channel
// uses.
const (
	CommandTopic = "control.command"
	AckTopic     = "control.ack"
)

// Handler executes one command kind and returns the detail string carried
// in the resulting Ack, or an error if the command could not be executed.
type Handler func(ctx context.Context, cmd Command) (detail string, err error)

// Bus is the minimal publish/subscribe surface the dispatcher needs; it is
// satisfied by pubsub.PubSub without importing that package here, keeping
// control free of a direct dependency on the backend selection.
type Bus interface {
	Publish(ctx context.Context, topic string, message []byte) error
	Subscribe(ctx context.Context, topic string) Subscription
}

// Subscription is the minimal subscribe handle the dispatcher consumes.
type Subscription interface {
	Channel() <-chan []byte
	Close() error
}

// Dispatcher receives Commands on CommandTopic, routes them to a
// kind-specific Handler, and publishes exactly one Ack per command on
// AckTopic within a bounded timeout.
type Dispatcher struct {
	bus      Bus
	log      *slog.Logger
	handlers map[CommandKind]Handler
}

// NewDispatcher constructs a Dispatcher with no handlers registered.
func NewDispatcher(bus Bus, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{bus: bus, log: log, handlers: make(map[CommandKind]Handler)}
}

// Handle registers the handler invoked for commands of the given kind.
func (d *Dispatcher) Handle(kind CommandKind, h Handler) {
	d.handlers[kind] = h
}

// Run subscribes to CommandTopic and dispatches commands until ctx is
// cancelled. It is intended to run in its own goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	sub := d.bus.Subscribe(ctx, CommandTopic)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub.Channel():
			if !ok {
				return
			}
			d.dispatch(ctx, raw)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		d.log.Warn("control: malformed command", "error", err)
		return
	}
	handler, ok := d.handlers[cmd.Kind]
	if !ok {
		d.ack(ctx, Ack{RequestID: cmd.RequestID, StatusCode: StatusInvalidCommand, Detail: fmt.Sprintf("unknown command kind %q", cmd.Kind)})
		return
	}
	detail, err := handler(ctx, cmd)
	if err != nil {
		d.ack(ctx, Ack{RequestID: cmd.RequestID, StatusCode: StatusError, Detail: err.Error()})
		return
	}
	d.ack(ctx, Ack{RequestID: cmd.RequestID, StatusCode: StatusOK, Detail: detail})
}

func (d *Dispatcher) ack(ctx context.Context, ack Ack) {
	data, err := json.Marshal(ack)
	if err != nil {
		d.log.Error("control: failed to encode ack", "error", err)
		return
	}
	if err := d.bus.Publish(ctx, AckTopic, data); err != nil {
		d.log.Warn("control: failed to publish ack", "request_id", ack.RequestID, "error", err)
	}
}
