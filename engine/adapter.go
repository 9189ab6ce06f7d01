package engine

import (
	"github.com/tolelom/tolchain/bus"
	syncproto "github.com/tolelom/tolchain/sync"
)

// Subscribe wires the bus adapter: every inbound message on the subjects
// this node cares about is translated into an Event and pushed onto the
// queue. It runs on NATS's own dispatch goroutines and never touches
// engine state directly, matching §5's "pub/sub adapter only enqueues
// decoded events" boundary.
func (e *Engine) Subscribe() error {
	subs := []struct {
		subject string
		build   func(bus.Msg) Event
	}{
		{syncproto.SubjectBlockPropose, func(m bus.Msg) Event { return BlockArrival(m.Data) }},
		{syncproto.SubjectTxBroadcast, func(m bus.Msg) Event { return TransactionArrival(m.Data) }},
		{syncproto.SubjectChat, func(m bus.Msg) Event { return Chat(m.Data) }},
		{syncproto.SubjectPubKey, func(m bus.Msg) Event { return PubKeyAnnouncement(m.Data, m.Reply) }},
		{syncproto.SubjectSynchronize, func(m bus.Msg) Event { return SyncRequest(m.Data, m.Reply) }},
	}
	for _, s := range subs {
		build := s.build
		if _, err := e.Bus.Subscribe(s.subject, func(m bus.Msg) {
			e.Enqueue(build(m))
		}); err != nil {
			return err
		}
	}
	return nil
}
