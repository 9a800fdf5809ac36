package keylock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAcquireSerializesSameKey(t *testing.T) {
	m := NewMap()
	key := Key{StoreID: uuid.New(), ProductID: uuid.New()}

	release, err := m.Acquire(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.Acquire(ctx, key)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := m.Acquire(context.Background(), key)
	require.NoError(t, err)
	release2()
}

func TestAcquireDisjointKeysDoNotContend(t *testing.T) {
	m := NewMap()
	a := Key{StoreID: uuid.New(), ProductID: uuid.New()}
	b := Key{StoreID: uuid.New(), ProductID: uuid.New()}

	releaseA, err := m.Acquire(context.Background(), a)
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := m.Acquire(ctx, b)
	require.NoError(t, err)
	releaseB()
}

func TestAcquireManyOppositeOrdersNoDeadlock(t *testing.T) {
	m := NewMap()
	a := Key{StoreID: uuid.New(), ProductID: uuid.New()}
	b := Key{StoreID: uuid.New(), ProductID: uuid.New()}

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		keys := []Key{a, b}
		if i == 1 {
			keys = []Key{b, a}
		}
		go func(keys []Key) {
			for j := 0; j < 100; j++ {
				release, err := m.AcquireMany(context.Background(), keys)
				if err != nil {
					t.Error(err)
					return
				}
				release()
			}
			done <- struct{}{}
		}(keys)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("deadlock: AcquireMany did not finish")
		}
	}
}

func TestAcquireManyReleasesHeldLocksOnFailure(t *testing.T) {
	m := NewMap()
	a := Key{StoreID: uuid.New(), ProductID: uuid.New()}
	b := Key{StoreID: uuid.New(), ProductID: uuid.New()}
	if b.Less(a) {
		a, b = b, a
	}

	// Hold b so AcquireMany gets a but times out on b.
	releaseB, err := m.Acquire(context.Background(), b)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.AcquireMany(ctx, []Key{a, b})
	require.Error(t, err)
	releaseB()

	// a must have been released on the failure path.
	release, err := m.Acquire(context.Background(), a)
	require.NoError(t, err)
	release()
}

func TestAcquireManyDeduplicatesKeys(t *testing.T) {
	m := NewMap()
	a := Key{StoreID: uuid.New(), ProductID: uuid.New()}

	release, err := m.AcquireMany(context.Background(), []Key{a, a, a})
	require.NoError(t, err)
	release()
}
