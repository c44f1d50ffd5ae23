package onboarding

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/index"
	"github.com/MrSnakeDoc/onboard/internal/logger"
	"github.com/MrSnakeDoc/onboard/internal/manifest"
)

func (l *sessionLocks) held() int {
	n := 0
	for i := range l.shards {
		shard := &l.shards[i]
		shard.mu.Lock()
		n += len(shard.locks)
		shard.mu.Unlock()
	}
	return n
}

func TestSessionLocksExclusivePerID(t *testing.T) {
	var locks sessionLocks

	release := locks.acquire("a")

	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		locks.acquire("a")()
	}()

	// Other IDs are never held up by "a".
	locks.acquire("b")()

	select {
	case <-acquired:
		t.Fatal("second acquire of the same id did not wait")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}

	assert.Zero(t, locks.held())
}

func TestSessionLocksConcurrentRelease(t *testing.T) {
	var locks sessionLocks
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer locks.acquire("same")()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, locks.held())
}

// gatedFetcher holds lookups for "slow" until gate is closed.
type gatedFetcher struct {
	domain.ManifestFetcher
	entered chan struct{}
	gate    chan struct{}
}

func (f *gatedFetcher) FetchManifest(ctx context.Context, baseURL string) (*domain.Manifest, error) {
	if strings.Contains(baseURL, "slow") {
		close(f.entered)
		<-f.gate
		return nil, nil
	}
	return f.ManifestFetcher.FetchManifest(ctx, baseURL)
}

func TestServiceSlowLookupDoesNotBlockOtherSessions(t *testing.T) {
	fetcher := &gatedFetcher{
		ManifestFetcher: manifest.NewFixtureFetcher(),
		entered:         make(chan struct{}),
		gate:            make(chan struct{}),
	}
	svc := NewService(index.NewMemoryIndex(), fetcher, domain.DefaultOptions(), logger.NewNop())
	ctx := context.Background()

	slow, err := svc.Start(ctx)
	require.NoError(t, err)
	fast, err := svc.Start(ctx)
	require.NoError(t, err)

	slowDone := make(chan *domain.Session, 1)
	go func() {
		s, _ := svc.SetDomain(ctx, slow.ID, "slow")
		slowDone <- s
	}()
	<-fetcher.entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := svc.SetDomain(ctx, fast.ID, "test4")
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(fetcher.gate)
		t.Fatal("lookup on one session blocked another session")
	}

	close(fetcher.gate)
	s := <-slowDone
	require.NotNil(t, s)
	assert.Equal(t, domain.PhaseSelectingDomain, s.State.Phase())
	assert.Zero(t, svc.locks.held())
}
