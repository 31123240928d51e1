package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"filmstream/internal/domain"
	"filmstream/internal/domain/ports"
)

type fakeHandle struct {
	locator string
}

func (h *fakeHandle) Locator() string         { return h.locator }
func (h *fakeHandle) Files() []domain.FileRef { return nil }
func (h *fakeHandle) NewReader(domain.FileRef) (ports.StreamReader, error) {
	return nil, errors.New("not implemented")
}

type fakeJoiner struct {
	mu      sync.Mutex
	joins   int32
	dropped []ports.TorrentHandle
	err     error
	block   chan struct{} // when set, Join waits for it (or ctx)
}

func (f *fakeJoiner) Join(ctx context.Context, locator string) (ports.TorrentHandle, error) {
	atomic.AddInt32(&f.joins, 1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &fakeHandle{locator: locator}, nil
}

func (f *fakeJoiner) Drop(handle ports.TorrentHandle) {
	f.mu.Lock()
	f.dropped = append(f.dropped, handle)
	f.mu.Unlock()
}

func (f *fakeJoiner) Stats() []ports.SwarmStat { return nil }
func (f *fakeJoiner) Close() error             { return nil }

func (f *fakeJoiner) joinCount() int {
	return int(atomic.LoadInt32(&f.joins))
}

func (f *fakeJoiner) droppedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dropped)
}

func TestResolveCachesHandle(t *testing.T) {
	joiner := &fakeJoiner{}
	r := New(joiner, Config{}, nil)

	h1, err := r.Resolve(context.Background(), "magnet:?a")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	h2, err := r.Resolve(context.Background(), "magnet:?a")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if h1 != h2 {
		t.Fatal("expected both resolves to return the same handle")
	}
	if joiner.joinCount() != 1 {
		t.Fatalf("joins = %d, want 1", joiner.joinCount())
	}
}

func TestConcurrentResolvesShareOneJoin(t *testing.T) {
	joiner := &fakeJoiner{block: make(chan struct{})}
	r := New(joiner, Config{}, nil)

	const callers = 8
	handles := make([]ports.TorrentHandle, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = r.Resolve(context.Background(), "magnet:?shared")
		}(i)
	}

	// Let the callers pile up behind the in-flight join.
	time.Sleep(50 * time.Millisecond)
	close(joiner.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if handles[i] != handles[0] {
			t.Fatalf("caller %d got a different handle", i)
		}
	}
	if joiner.joinCount() != 1 {
		t.Fatalf("joins = %d, want 1", joiner.joinCount())
	}
}

func TestFailedResolveIsNotCached(t *testing.T) {
	joiner := &fakeJoiner{err: errors.New("no peers")}
	r := New(joiner, Config{}, nil)

	if _, err := r.Resolve(context.Background(), "magnet:?bad"); !errors.Is(err, domain.ErrResolution) {
		t.Fatalf("err = %v, want ErrResolution", err)
	}
	if r.ResidentCount() != 0 {
		t.Fatalf("resident = %d, want 0 after failure", r.ResidentCount())
	}

	// The next attempt is fresh, not a replayed failure.
	joiner.err = nil
	if _, err := r.Resolve(context.Background(), "magnet:?bad"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if joiner.joinCount() != 2 {
		t.Fatalf("joins = %d, want 2", joiner.joinCount())
	}
}

func TestResolveTimeout(t *testing.T) {
	joiner := &fakeJoiner{block: make(chan struct{})}
	r := New(joiner, Config{ResolveTimeout: 30 * time.Millisecond}, nil)

	_, err := r.Resolve(context.Background(), "magnet:?hung")
	if !errors.Is(err, domain.ErrResolution) {
		t.Fatalf("err = %v, want ErrResolution", err)
	}
	if r.ResidentCount() != 0 {
		t.Fatalf("resident = %d, want 0 after timeout", r.ResidentCount())
	}
}

func TestCallerCancellationDoesNotAbortSharedJoin(t *testing.T) {
	joiner := &fakeJoiner{block: make(chan struct{})}
	r := New(joiner, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "magnet:?shared")
		cancelled <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-cancelled; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v, want context.Canceled", err)
	}

	// A patient caller still gets the handle from the original join.
	done := make(chan struct{})
	var err error
	go func() {
		_, err = r.Resolve(context.Background(), "magnet:?shared")
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	close(joiner.block)
	<-done

	if err != nil {
		t.Fatalf("patient caller: %v", err)
	}
	if joiner.joinCount() != 1 {
		t.Fatalf("joins = %d, want 1", joiner.joinCount())
	}
}

func TestEvictionDropsLeastRecentlyUsed(t *testing.T) {
	joiner := &fakeJoiner{}
	r := New(joiner, Config{MaxResident: 2}, nil)

	clock := time.Unix(1000, 0)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	if _, err := r.Resolve(context.Background(), "magnet:?one"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(context.Background(), "magnet:?two"); err != nil {
		t.Fatal(err)
	}
	// Touch "one" so "two" becomes the eviction candidate.
	if _, err := r.Resolve(context.Background(), "magnet:?one"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(context.Background(), "magnet:?three"); err != nil {
		t.Fatal(err)
	}

	if r.ResidentCount() != 2 {
		t.Fatalf("resident = %d, want 2", r.ResidentCount())
	}
	if joiner.droppedCount() != 1 {
		t.Fatalf("dropped = %d, want 1", joiner.droppedCount())
	}
	if got := joiner.dropped[0].Locator(); got != "magnet:?two" {
		t.Fatalf("evicted %q, want magnet:?two", got)
	}

	// "two" was evicted, so resolving it again joins the swarm anew.
	before := joiner.joinCount()
	if _, err := r.Resolve(context.Background(), "magnet:?two"); err != nil {
		t.Fatal(err)
	}
	if joiner.joinCount() != before+1 {
		t.Fatal("expected a fresh join for the evicted locator")
	}
}

func TestCloseDropsAllHandles(t *testing.T) {
	joiner := &fakeJoiner{}
	r := New(joiner, Config{}, nil)

	for _, locator := range []string{"magnet:?a", "magnet:?b", "magnet:?c"} {
		if _, err := r.Resolve(context.Background(), locator); err != nil {
			t.Fatal(err)
		}
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if joiner.droppedCount() != 3 {
		t.Fatalf("dropped = %d, want 3", joiner.droppedCount())
	}
	if r.ResidentCount() != 0 {
		t.Fatalf("resident = %d, want 0 after close", r.ResidentCount())
	}
}
