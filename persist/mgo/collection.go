// Package mgo persists grants and role assignments in mongodb, and follows changes with change streams
package mgo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/globalsign/mgo"
	"github.com/go-logr/logr"
	"github.com/supremind/authorizable/types"
)

const (
	defaultRetryTimeout = time.Second
	idSeparator         = "#"
)

type collection struct {
	*mgo.Collection
	log          logr.Logger
	retryTimeout time.Duration
}

type collectionOption func(*collection)

// WithLogger sets logger of the persister
func WithLogger(l logr.Logger) collectionOption {
	return func(c *collection) {
		c.log = l
	}
}

// SetRetryTimeout sets how long to wait before watching again after failures
func SetRetryTimeout(d time.Duration) collectionOption {
	return func(c *collection) {
		c.retryTimeout = d
	}
}

func newCollection(coll *mgo.Collection, opts ...collectionOption) *collection {
	c := &collection{
		Collection:   coll,
		log:          logr.Discard(),
		retryTimeout: defaultRetryTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *collection) copySession() *collection {
	db := c.Database
	return &collection{
		Collection:   db.Session.Copy().DB(db.Name).C(c.Name),
		log:          c.log,
		retryTimeout: c.retryTimeout,
	}
}

func (c *collection) closeSession() {
	c.Database.Session.Close()
}

type changeStreamOperationType string

const (
	insert changeStreamOperationType = "insert"
	delete changeStreamOperationType = "delete"
)

// policy documents are never updated, their ids carry the whole policy
type changeEvent struct {
	OperationType changeStreamOperationType `bson:"operationType,omitempty"`
	DocumentKey   struct {
		ID string `bson:"_id,omitempty"`
	} `bson:"documentKey,omitempty"`
}

// watch calls emit with the id of every inserted or deleted document, until ctx is done or emit returns false.
// Broken change streams are reopened after the retry timeout.
func (c *collection) watch(ctx context.Context, emit func(types.PersistMethod, string) bool, done func()) error {
	connect := func() (*mgo.ChangeStream, func(), error) {
		ss := c.copySession()
		cs, e := ss.Watch(nil, mgo.ChangeStreamOptions{})
		if e != nil {
			ss.closeSession()
			return nil, nil, e
		}

		c.log.Info("watch mongo stream change", "collection", c.Name)

		return cs, func() {
			cs.Close()
			ss.closeSession()
		}, nil
	}

	// fetch returns nil when it should stop watching
	fetch := func(cs *mgo.ChangeStream) error {
		for {
			var event changeEvent
			for cs.Next(&event) {
				var method types.PersistMethod
				switch event.OperationType {
				case insert:
					method = types.PersistInsert
				case delete:
					method = types.PersistDelete
				default:
					c.log.Info("unsupported operation type", "operation type", event.OperationType, "key", event.DocumentKey.ID)
					event = changeEvent{}
					continue
				}

				c.log.V(4).Info("got change event", "method", method, "key", event.DocumentKey.ID)
				if !emit(method, event.DocumentKey.ID) {
					return nil
				}
				event = changeEvent{}
			}

			if e := cs.Err(); e != nil && !errors.Is(e, mgo.ErrNotFound) {
				return e
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
	}

	cs, closer, e := connect()
	if e != nil {
		return e
	}

	go func() {
		defer done()

		for {
			e := fetch(cs)
			closer()
			if e == nil {
				return
			}
			c.log.Error(e, "fetch event change failed, reconnect later")

			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.retryTimeout):
				}

				cs, closer, e = connect()
				if e == nil {
					break
				}
				c.log.Error(e, "connect to watch failed, reconnect later")
			}
		}
	}()

	return nil
}

func parseMgoError(e error) error {
	switch {
	case e == nil:
		return nil
	case mgo.IsDup(e):
		return fmt.Errorf("%w: %s", types.ErrAlreadyExists, e)
	case errors.Is(e, mgo.ErrNotFound):
		return fmt.Errorf("%w: %s", types.ErrNotFound, e)
	}
	return e
}
