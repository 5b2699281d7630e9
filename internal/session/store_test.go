package session

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosort-service/internal/adapters/mock"
	"geosort-service/internal/domain"
	"geosort-service/internal/services"
)

type countingCloser struct{ n *atomic.Int32 }

func (c countingCloser) Close() error {
	c.n.Add(1)
	return nil
}

func testFactory(closed *atomic.Int32) Factory {
	return func(_ context.Context, sink func(services.Event)) (*services.Pipeline, io.Closer, error) {
		geo := mock.NewMockGeocoder(map[string]domain.Coordinates{})
		p := services.NewPipeline(geo, mock.NewMockOptimizer(nil), services.WithEventSink(sink))
		return p, countingCloser{n: closed}, nil
	}
}

func TestStoreCreateGetDelete(t *testing.T) {
	var closed atomic.Int32
	s := NewStore(testFactory(&closed), nil, time.Minute)

	sess, err := s.Create(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, s.Len())

	got, ok := s.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	assert.True(t, s.Delete(sess.ID))
	assert.False(t, s.Delete(sess.ID))
	assert.Equal(t, int32(1), closed.Load())

	_, ok = s.Get(sess.ID)
	assert.False(t, ok)
}

func TestStoreCreateFactoryError(t *testing.T) {
	s := NewStore(func(context.Context, func(services.Event)) (*services.Pipeline, io.Closer, error) {
		return nil, nil, errors.New("no cache")
	}, nil, time.Minute)

	_, err := s.Create(context.Background())
	assert.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestStoreEvictsIdleSessions(t *testing.T) {
	var closed atomic.Int32
	s := NewStore(testFactory(&closed), nil, 10*time.Minute)

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	idle, err := s.Create(context.Background())
	require.NoError(t, err)
	fresh, err := s.Create(context.Background())
	require.NoError(t, err)

	now = now.Add(8 * time.Minute)
	_, ok := s.Get(fresh.ID)
	require.True(t, ok)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, s.Evict())

	_, ok = s.Get(idle.ID)
	assert.False(t, ok)
	_, ok = s.Get(fresh.ID)
	assert.True(t, ok)
	assert.Equal(t, int32(1), closed.Load())
}

func TestStoreZeroTTLNeverEvicts(t *testing.T) {
	var closed atomic.Int32
	s := NewStore(testFactory(&closed), nil, 0)
	_, err := s.Create(context.Background())
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(1000 * time.Hour) }
	assert.Zero(t, s.Evict())
}

func TestStoreRoutesEventsToSubscribers(t *testing.T) {
	var closed atomic.Int32
	s := NewStore(testFactory(&closed), nil, time.Minute)

	sess, err := s.Create(context.Background())
	require.NoError(t, err)
	ch := s.Broker().Subscribe(sess.ID)

	_, err = sess.Pipeline.Load("list.csv", []byte("a,b,c,d\n"))
	require.NoError(t, err)

	select {
	case evt := <-ch:
		assert.Equal(t, services.EventStage, evt.Kind)
		assert.Equal(t, domain.StageParsed, evt.Stage)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	s.Delete(sess.ID)
	for range ch {
	}
}

func TestStoreClose(t *testing.T) {
	var closed atomic.Int32
	s := NewStore(testFactory(&closed), nil, time.Minute)
	for i := 0; i < 3; i++ {
		_, err := s.Create(context.Background())
		require.NoError(t, err)
	}

	s.Close()
	assert.Zero(t, s.Len())
	assert.Equal(t, int32(3), closed.Load())
}

func TestStoreSubscribe(t *testing.T) {
	var closed atomic.Int32
	s := NewStore(testFactory(&closed), nil, time.Minute)

	sess, err := s.Create(context.Background())
	require.NoError(t, err)

	got, ch, ok := s.Subscribe(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	require.True(t, s.Delete(sess.ID))
	_, open := <-ch
	assert.False(t, open, "delete closes live subscriptions")
}

func TestStoreSubscribeAfterDelete(t *testing.T) {
	var closed atomic.Int32
	s := NewStore(testFactory(&closed), nil, time.Minute)

	sess, err := s.Create(context.Background())
	require.NoError(t, err)
	require.True(t, s.Delete(sess.ID))

	_, ch, ok := s.Subscribe(sess.ID)
	assert.False(t, ok)
	assert.Nil(t, ch)

	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	assert.Empty(t, s.broker.subs, "no broker entry for a deleted session")
}
