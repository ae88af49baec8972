package fake

import (
	"context"
	"sync"
)

const watchBuffer = 16

// watchers fans changes out to subscribers until their contexts are done
type watchers[T any] struct {
	subs []*subscriber[T]
	sync.Mutex
}

type subscriber[T any] struct {
	ctx context.Context
	ch  chan T
}

func (w *watchers[T]) add(ctx context.Context) <-chan T {
	sub := &subscriber[T]{ctx: ctx, ch: make(chan T, watchBuffer)}

	w.Lock()
	w.subs = append(w.subs, sub)
	w.Unlock()

	go func() {
		<-ctx.Done()
		w.Lock()
		defer w.Unlock()
		for i, s := range w.subs {
			if s == sub {
				w.subs = append(w.subs[:i], w.subs[i+1:]...)
				close(sub.ch)
				return
			}
		}
	}()

	return sub.ch
}

// send blocks until every live subscriber takes the change
func (w *watchers[T]) send(change T) {
	w.Lock()
	defer w.Unlock()

	for _, sub := range w.subs {
		select {
		case sub.ch <- change:
		case <-sub.ctx.Done():
		}
	}
}
