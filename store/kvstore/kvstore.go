// Package kvstore provides a metadata store over a NATS JetStream
// key-value bucket. Record documents live under hierarchical keys so
// several catalog nodes can share one bucket.
package kvstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/store"
)

// Bucket is the slice of the JetStream key-value surface the store uses.
// jetstream.KeyValue satisfies it.
type Bucket interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
	ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error)
}

// Store is a metadata store backed by a key-value bucket.
//
// Thread Safety:
// Safe for concurrent use. The bucket client handles its own
// synchronization; Close flips a guarded flag.
type Store struct {
	bucket Bucket
	conn   *nats.Conn
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps an existing bucket. The caller owns the connection.
func New(bucket Bucket, opts ...Option) *Store {
	s := &Store{bucket: bucket, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to a NATS server, creates (or binds) the named bucket and
// returns a store that owns the connection.
func Open(ctx context.Context, url, bucket string, opts ...Option) (*Store, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, errors.WrapTransient(err, "kvstore", "Open", "connect "+url)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, errors.WrapFatal(err, "kvstore", "Open", "create JetStream context")
	}
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "catalog metadata records",
		History:     5,
	})
	if err != nil {
		nc.Close()
		return nil, errors.WrapFatal(err, "kvstore", "Open", "create bucket "+bucket)
	}
	s := New(kv, opts...)
	s.conn = nc
	return s, nil
}

// Kind reports store.KindKV.
func (s *Store) Kind() store.Kind { return store.KindKV }

// Close drains the owned connection, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

// Put stores a document at the key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	if _, err := s.bucket.Put(ctx, key, data); err != nil {
		return errors.WrapTransient(err, "kvstore", "Put", "put "+key)
	}
	s.logger.Debug("record stored", "key", key, "bytes", len(data))
	return nil
}

// Get retrieves the document at the key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	entry, err := s.bucket.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("kvstore: key %q: %w", key, errors.ErrKeyNotFound)
		}
		return nil, errors.WrapTransient(err, "kvstore", "Get", "get "+key)
	}
	return entry.Value(), nil
}

// List returns all keys with the prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	lister, err := s.bucket.ListKeys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "kvstore", "List", "list keys")
	}
	defer lister.Stop()

	var keys []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.bucket.Delete(ctx, key); err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		return errors.WrapTransient(err, "kvstore", "Delete", "delete "+key)
	}
	return nil
}

func (s *Store) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrStoreClosed
	}
	return nil
}
