package server

import (
	"time"

	"ssacore/server/view"

	channerics "github.com/niceyeti/channerics/channels"
)

// subBuf bounds how many unread snapshots a slow viewer can fall behind by.
const subBuf = 4

// batchRate is how often a batched snapshot is released to subscribers,
// the same order of magnitude as the teacher's root_view batchify rate.
const batchRate = 50 * time.Millisecond

// hub fans a single upstream snapshot stream out to every subscribed
// websocket viewer, the multi-client generalization of the teacher's
// single rootView.Updates() channel. The upstream stream first passes
// through batchify, which collapses snapshots arriving faster than
// batchRate down to the latest one, the same fan-in/rate-limit idiom as
// the teacher's root_view.fanIn/batchify.
type hub struct {
	subReq   chan chan view.TrajectorySnapshot
	unsubReq chan chan view.TrajectorySnapshot
}

func newHub() *hub {
	return &hub{
		subReq:   make(chan chan view.TrajectorySnapshot),
		unsubReq: make(chan chan view.TrajectorySnapshot),
	}
}

// subscribe registers a new viewer and returns its snapshot feed.
func (h *hub) subscribe() chan view.TrajectorySnapshot {
	ch := make(chan view.TrajectorySnapshot, subBuf)
	h.subReq <- ch
	return ch
}

// unsubscribe removes a viewer registered via subscribe.
func (h *hub) unsubscribe(ch chan view.TrajectorySnapshot) {
	h.unsubReq <- ch
}

// run owns the subscriber set and the read side of the batched snapshot
// feed; it is the hub's only goroutine, so no locking is needed around
// subs. done closing tears down both the batching goroutine and every
// subscriber channel.
func (h *hub) run(done <-chan struct{}, snapshots <-chan view.TrajectorySnapshot) {
	batched := batchify(done, channerics.Merge(done, snapshots), batchRate)

	subs := make(map[chan view.TrajectorySnapshot]struct{})
	for {
		select {
		case snap, ok := <-batched:
			if !ok {
				for ch := range subs {
					close(ch)
				}
				return
			}
			for ch := range subs {
				select {
				case ch <- snap:
				default:
					// A full subscriber buffer drops this snapshot rather than
					// block the hub on one laggard viewer; the next batch
					// supersedes it, so nothing is lost but recency.
				}
			}
		case ch := <-h.subReq:
			subs[ch] = struct{}{}
		case ch := <-h.unsubReq:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
		case <-done:
			for ch := range subs {
				close(ch)
			}
			return
		}
	}
}

// batchify collapses snapshots arriving faster than rate down to the most
// recently received one, releasing it on a fixed tick instead of per
// message -- adapted from the teacher's root_view.batchify, which
// accumulates a map of per-element updates between ticks; a
// TrajectorySnapshot already is the full current state, so there is only
// one thing to keep, not a map to merge.
func batchify(done <-chan struct{}, source <-chan view.TrajectorySnapshot, rate time.Duration) <-chan view.TrajectorySnapshot {
	output := make(chan view.TrajectorySnapshot)
	go func() {
		defer close(output)

		wrapped := channerics.OrDone(done, source)
		ticker := channerics.NewTicker(done, rate)

		var latest view.TrajectorySnapshot
		pending := false
		for {
			select {
			case snap, ok := <-wrapped:
				if !ok {
					return
				}
				latest = snap
				pending = true
			case <-ticker:
				if !pending {
					continue
				}
				select {
				case output <- latest:
					pending = false
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()
	return output
}
