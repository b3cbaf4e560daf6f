package sequence

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisNextConcurrentDistinctIncreasing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	seq := NewRedis(client, "test")

	const n = 64
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values []int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.Next(context.Background(), InvoiceNumber)
			require.NoError(t, err)
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	require.Len(t, values, n)
	for i, v := range values {
		require.EqualValues(t, i+1, v)
	}
}

func TestRedisSequencesAreIndependent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	seq := NewRedis(client, "")

	ctx := context.Background()
	v, err := seq.Next(ctx, InvoiceNumber)
	require.NoError(t, err)
	require.EqualValues(t, 1, v)
	v, err = seq.Next(ctx, ReturnNumber)
	require.NoError(t, err)
	require.EqualValues(t, 1, v)
	v, err = seq.Next(ctx, InvoiceNumber)
	require.NoError(t, err)
	require.EqualValues(t, 2, v)
	require.Equal(t, "2", mustGet(t, mr, "shopmanager:seq:invoiceNumber"))

	_, err = seq.Next(ctx, " ")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	require.Equal(t, "REP07", Format("REP", 7, 2))
	require.Equal(t, "REP123", Format("REP", 123, 2))
	require.Equal(t, "INV-42", Format("INV-", 42, 0))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
