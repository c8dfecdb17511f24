package kvstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/store"
)

// fakeBucket is an in-memory Bucket for tests that do not need a server.
type fakeBucket struct {
	mu   sync.Mutex
	data map[string][]byte
	rev  uint64
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{data: make(map[string][]byte)}
}

func (b *fakeBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = append([]byte(nil), value...)
	b.rev++
	return b.rev, nil
}

func (b *fakeBucket) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{key: key, value: value, rev: b.rev}, nil
}

func (b *fakeBucket) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(b.data, key)
	return nil
}

func (b *fakeBucket) ListKeys(_ context.Context, _ ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	b.mu.Lock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	b.mu.Unlock()

	ch := make(chan string, len(keys))
	for _, k := range keys {
		ch <- k
	}
	close(ch)
	return fakeLister{ch: ch}, nil
}

type fakeEntry struct {
	key   string
	value []byte
	rev   uint64
}

func (e fakeEntry) Bucket() string                  { return "test" }
func (e fakeEntry) Key() string                     { return e.key }
func (e fakeEntry) Value() []byte                   { return e.value }
func (e fakeEntry) Revision() uint64                { return e.rev }
func (e fakeEntry) Created() time.Time              { return time.Time{} }
func (e fakeEntry) Delta() uint64                   { return 0 }
func (e fakeEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

type fakeLister struct{ ch chan string }

func (l fakeLister) Keys() <-chan string { return l.ch }
func (l fakeLister) Stop() error         { return nil }

func TestPutGetDelete(t *testing.T) {
	s := New(newFakeBucket())
	defer s.Close()
	assert.Equal(t, store.KindKV, s.Kind())

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "records/ds1", []byte(`{"title":"run 1"}`)))

	data, err := s.Get(ctx, "records/ds1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"run 1"}`, string(data))

	require.NoError(t, s.Delete(ctx, "records/ds1"))
	_, err = s.Get(ctx, "records/ds1")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestDeleteAbsentKeyIsNoOp(t *testing.T) {
	s := New(newFakeBucket())
	defer s.Close()
	assert.NoError(t, s.Delete(context.Background(), "records/missing"))
}

func TestListByPrefix(t *testing.T) {
	s := New(newFakeBucket())
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "records/ds1", []byte("a")))
	require.NoError(t, s.Put(ctx, "records/ds2", []byte("b")))
	require.NoError(t, s.Put(ctx, "tables/piv", []byte("c")))

	keys, err := s.List(ctx, "records/")
	require.NoError(t, err)
	assert.Equal(t, []string{"records/ds1", "records/ds2"}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestClosedStore(t *testing.T) {
	s := New(newFakeBucket())
	require.NoError(t, s.Close())

	err := s.Put(context.Background(), "k", nil)
	assert.ErrorIs(t, err, errors.ErrStoreClosed)
	_, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, errors.ErrStoreClosed)
}
