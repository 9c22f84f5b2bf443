// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"

	"github.com/Preciousbas/polichain-governance/gov/model"
)

// ZmqPublisher broadcasts committed events over a ZeroMQ PUB socket,
// one message per event with a "gov.<type>" topic frame and a JSON
// body. Slow subscribers never stall the engine: events drain through
// a buffered channel and drop on overflow.
type ZmqPublisher struct {
	sock  zmq4.Socket
	ch    chan *model.Event
	done  chan struct{}
	drops int64
}

func NewZmqPublisher(ctx context.Context, addr string, qlen int) (*ZmqPublisher, error) {
	sock := zmq4.NewPub(ctx)
	if err := sock.Listen(addr); err != nil {
		return nil, err
	}
	if qlen <= 0 {
		qlen = 1024
	}
	p := &ZmqPublisher{
		sock: sock,
		ch:   make(chan *model.Event, qlen),
		done: make(chan struct{}),
	}
	go p.loop()
	log.Infof("Event feed listening on %s.", addr)
	return p, nil
}

func (p *ZmqPublisher) Publish(ev *model.Event) {
	select {
	case p.ch <- ev:
	default:
		atomic.AddInt64(&p.drops, 1)
	}
}

// Drops counts events lost to queue overflow since start.
func (p *ZmqPublisher) Drops() int64 {
	return atomic.LoadInt64(&p.drops)
}

func (p *ZmqPublisher) loop() {
	defer close(p.done)
	for ev := range p.ch {
		body, err := json.Marshal(ev)
		if err != nil {
			log.Errorf("Marshal feed event: %s", err)
			continue
		}
		msg := zmq4.NewMsgFrom([]byte("gov."+ev.Type.String()), body)
		if err := p.sock.Send(msg); err != nil {
			log.Debugf("Feed send: %s", err)
		}
	}
}

func (p *ZmqPublisher) Close() error {
	close(p.ch)
	<-p.done
	return p.sock.Close()
}
