// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package relay

import (
	"context"
	"errors"
	"time"

	"github.com/luxfi/log"
)

const (
	DefaultChannelCapacity = 256
	DefaultRetryInterval   = time.Second
)

var (
	_ Sender = (*Channel)(nil)

	ErrChannelFull = errors.New("relay channel is full")
)

// Receiver consumes envelopes on the destination chain.
type Receiver interface {
	Deliver(ctx context.Context, env *Envelope) error
}

// Channel is an in-process, single-sender link. Envelopes are delivered
// in send order. A failed delivery is retried until it succeeds or the
// receiver rejects the envelope as invalid.
type Channel struct {
	log           log.Logger
	receiver      Receiver
	retryInterval time.Duration
	queue         chan *Envelope
}

func NewChannel(logger log.Logger, receiver Receiver, capacity int, retryInterval time.Duration) *Channel {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	return &Channel{
		log:           logger,
		receiver:      receiver,
		retryInterval: retryInterval,
		queue:         make(chan *Envelope, capacity),
	}
}

func (c *Channel) Send(ctx context.Context, env *Envelope) error {
	select {
	case c.queue <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrChannelFull
	}
}

// Pending returns the number of queued envelopes.
func (c *Channel) Pending() int {
	return len(c.queue)
}

// Run delivers queued envelopes until ctx is done.
func (c *Channel) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-c.queue:
			c.deliver(ctx, env)
		}
	}
}

func (c *Channel) deliver(ctx context.Context, env *Envelope) {
	for attempt := 1; ; attempt++ {
		err := c.receiver.Deliver(ctx, env)
		switch {
		case err == nil:
			return
		case errors.Is(err, ErrInvalidEnvelope):
			c.log.Error("dropping rejected envelope",
				log.Stringer("envelopeID", env.ID()),
				log.Err(err),
			)
			return
		}

		c.log.Warn("envelope delivery failed",
			log.Stringer("envelopeID", env.ID()),
			log.Int("attempt", attempt),
			log.Err(err),
		)

		timer := time.NewTimer(c.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
