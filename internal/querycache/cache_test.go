package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(n *atomic.Int32, v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		n.Add(1)
		return v, nil
	}
}

func TestGet_CachesUntilInvalidated(t *testing.T) {
	c := New(true)
	ctx := context.Background()
	key := NewKey("campaign", "a")
	var calls atomic.Int32

	v, err := Get(ctx, c, key, []string{TagCampaign}, counter(&calls, "one"))
	require.NoError(t, err)
	assert.Equal(t, "one", v)

	v, err = Get(ctx, c, key, []string{TagCampaign}, counter(&calls, "two"))
	require.NoError(t, err)
	assert.Equal(t, "one", v)
	assert.EqualValues(t, 1, calls.Load())

	c.Invalidate(TagParticipation)
	assert.Equal(t, 1, c.Len())

	c.Invalidate(TagCampaign)
	assert.Equal(t, 0, c.Len())

	v, err = Get(ctx, c, key, []string{TagCampaign}, counter(&calls, "three"))
	require.NoError(t, err)
	assert.Equal(t, "three", v)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGet_ErrorsAreNotCached(t *testing.T) {
	c := New(true)
	ctx := context.Background()
	key := NewKey("profile", 1)
	boom := errors.New("boom")

	_, err := Get(ctx, c, key, nil, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestGet_Disabled(t *testing.T) {
	c := New(false)
	ctx := context.Background()
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		_, err := Get(ctx, c, NewKey("x"), nil, counter(&calls, "v"))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, calls.Load())
}

func TestGet_CoalescesConcurrentLoads(t *testing.T) {
	c := New(true)
	ctx := context.Background()
	key := NewKey("campaigns", "recent")
	release := make(chan struct{})
	var calls atomic.Int32

	load := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Get(ctx, c, key, nil, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, "v", r)
	}
}

func TestGet_InvalidationDuringLoadSkipsStore(t *testing.T) {
	c := New(true)
	ctx := context.Background()
	key := NewKey("campaign", "a")

	v, err := Get(ctx, c, key, []string{TagCampaign}, func(context.Context) (string, error) {
		c.Invalidate(TagCampaign)
		return "stale", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", v)
	assert.Equal(t, 0, c.Len())
}

func TestGet_ReadAfterInvalidateSkipsInflightLoad(t *testing.T) {
	c := New(true)
	ctx := context.Background()
	key := NewKey("campaign", "a")
	started := make(chan struct{})
	release := make(chan struct{})

	first := make(chan string, 1)
	go func() {
		v, err := Get(ctx, c, key, []string{TagCampaign}, func(context.Context) (string, error) {
			close(started)
			<-release
			return "before-write", nil
		})
		assert.NoError(t, err)
		first <- v
	}()
	<-started

	c.Invalidate(TagCampaign)

	v, err := Get(ctx, c, key, []string{TagCampaign}, func(context.Context) (string, error) {
		return "after-write", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after-write", v)

	close(release)
	assert.Equal(t, "before-write", <-first)

	v, err = Get(ctx, c, key, []string{TagCampaign}, func(context.Context) (string, error) {
		return "unexpected", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after-write", v)
}

func TestGet_SharedLoadIgnoresCallerCancellation(t *testing.T) {
	c := New(true)
	key := NewKey("campaigns", "recent")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := Get(ctx, c, key, nil, func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "v", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, 1, c.Len())
}

func TestSubscribe(t *testing.T) {
	c := New(true)
	id := uuid.New()
	tag := ProfileTag(id)

	var got []string
	unsubscribe := c.Subscribe(tag, func(tag string) { got = append(got, tag) })

	c.Invalidate(tag, TagCampaign)
	assert.Equal(t, []string{tag}, got)

	unsubscribe()
	unsubscribe()
	c.Invalidate(tag)
	assert.Len(t, got, 1)
}

func TestNewKey(t *testing.T) {
	assert.Equal(t, Key{Resource: "campaigns", Params: "recent|1|20"}, NewKey("campaigns", "recent", 1, 20))
	assert.Equal(t, "campaigns?", NewKey("campaigns").String())
}
