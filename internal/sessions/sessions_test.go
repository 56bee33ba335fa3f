package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/deliotti/tucosto-backend/internal/ledger"
	"github.com/deliotti/tucosto-backend/pkg/enums"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) LedgerKey(sessionID string) string { return "tucosto:ledger:" + sessionID }

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	rs, err := NewRedisStore(newFakeRedis(), time.Hour)
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  rs,
	}
}

func TestStoreUnknownSessionIsEmpty(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			l, err := store.Load(context.Background(), "nuevo")
			require.NoError(t, err)
			assert.Equal(t, enums.LedgerStateEmpty, l.State())
		})
	}
}

func TestStoreUpdatePersists(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := store.Update(ctx, "s1", func(l *ledger.Ledger) error {
				_, err := l.Append("Cemento", 2, price(150))
				return err
			})
			require.NoError(t, err)

			l, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, 1, l.Len())
			assert.True(t, l.Total().Equal(price(300)))
		})
	}
}

func TestStoreFailedUpdateLeavesLedgerUntouched(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Update(ctx, "s1", func(l *ledger.Ledger) error {
				_, err := l.Append("Arena", 1, price(100))
				return err
			}))

			boom := errors.New("boom")
			err := store.Update(ctx, "s1", func(l *ledger.Ledger) error {
				if _, err := l.Append("Grava", 1, price(80)); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)

			l, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 1, l.Len())
			assert.True(t, l.Total().Equal(price(100)))
		})
	}
}

func TestStoreSessionsAreIndependent(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Update(ctx, "a", func(l *ledger.Ledger) error {
				_, err := l.Append("Cemento", 1, price(150))
				return err
			}))

			b, err := store.Load(ctx, "b")
			require.NoError(t, err)
			assert.Equal(t, 0, b.Len())
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Update(ctx, "s1", func(l *ledger.Ledger) error {
				_, err := l.Append("Cemento", 1, price(150))
				return err
			}))
			require.NoError(t, store.Delete(ctx, "s1"))

			l, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 0, l.Len())
		})
	}
}

func TestStoreRejectsBlankSessionID(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "  ")
			assert.ErrorIs(t, err, ErrSessionIDRequired)
		})
	}
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "s1", func(l *ledger.Ledger) error {
		_, err := l.Append("Cemento", 1, price(150))
		return err
	}))

	now = now.Add(30 * time.Second)
	l, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len(), "access within the ttl keeps the session")

	now = now.Add(50 * time.Second)
	l, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len(), "ttl slides on every access")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 0, store.Len())
	l, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, "shared", func(l *ledger.Ledger) error {
				_, err := l.Append("Cemento", 1, price(10))
				return err
			})
		}()
	}
	wg.Wait()

	l, err := store.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 50, l.Len())
	assert.True(t, l.Total().Equal(price(500)))
}

func TestRedisStoreRefreshesTTLAndEncodesRows(t *testing.T) {
	fake := newFakeRedis()
	store, err := NewRedisStore(fake, 2*time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Update(context.Background(), "s1", func(l *ledger.Ledger) error {
		_, err := l.Append("Cemento", 2, price(150))
		return err
	}))

	assert.Equal(t, 2*time.Hour, fake.ttls["tucosto:ledger:s1"])
	assert.Contains(t, fake.data["tucosto:ledger:s1"], `"item_name":"Cemento"`)
}

func TestRedisStoreSurfacesBackendErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.getErr = errors.New("connection refused")
	store, err := NewRedisStore(fake, time.Hour)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, fake.getErr)
}

func TestRedisStoreRejectsCorruptDocument(t *testing.T) {
	fake := newFakeRedis()
	fake.data["tucosto:ledger:s1"] = `{"rows":[{"item_name":"","quantity":1,"unit_price":"1"}]}`
	store, err := NewRedisStore(fake, time.Hour)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "s1")
	var invalid *ledger.InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}

func TestNewRedisStoreRequiresClient(t *testing.T) {
	_, err := NewRedisStore(nil, time.Hour)
	assert.Error(t, err)
}
