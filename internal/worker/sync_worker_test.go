package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a3p/internal/amqp"
	"a3p/internal/dataset"
)

type fakeSnapshots struct {
	mu   sync.Mutex
	snap *dataset.Snapshot
	err  error
}

func (f *fakeSnapshots) Get(context.Context) (*dataset.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.err
}

func (f *fakeSnapshots) set(s *dataset.Snapshot) {
	f.mu.Lock()
	f.snap = s
	f.mu.Unlock()
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.SnapshotChangedMessage
	err  error
}

func (p *fakePublisher) PublishSnapshotChanged(_ context.Context, msg *amqp.SnapshotChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type fakePruner struct {
	calls int
	keep  int
	err   error
}

func (p *fakePruner) PruneSnapshots(_ context.Context, _ string, keep int) (int, error) {
	p.calls++
	p.keep = keep
	return 1, p.err
}

func snapshot(id string) *dataset.Snapshot {
	return &dataset.Snapshot{ID: id, Source: "excel:adesoes.xlsx#Planilha1", Fingerprint: "fp-" + id}
}

func TestCheckSourcePublishesOnlyNewSnapshots(t *testing.T) {
	src := &fakeSnapshots{snap: snapshot("a")}
	pub := &fakePublisher{}
	pruner := &fakePruner{}
	w := NewSyncWorker(src, pub, pruner, 3, nil)
	ctx := context.Background()

	published, err := w.CheckSource(ctx)
	require.NoError(t, err)
	assert.True(t, published)

	published, err = w.CheckSource(ctx)
	require.NoError(t, err)
	assert.False(t, published, "same snapshot must not be announced twice")

	src.set(snapshot("b"))
	published, err = w.CheckSource(ctx)
	require.NoError(t, err)
	assert.True(t, published)

	require.Equal(t, 2, pub.count())
	assert.Equal(t, "b", pub.msgs[1].SnapshotID)
	assert.Equal(t, "fp-b", pub.msgs[1].Fingerprint)
	assert.Equal(t, 2, pruner.calls)
	assert.Equal(t, 3, pruner.keep)
}

func TestCheckSourceErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("snapshot failure", func(t *testing.T) {
		w := NewSyncWorker(&fakeSnapshots{err: boom}, nil, nil, 0, nil)
		_, err := w.CheckSource(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("publish failure retries next time", func(t *testing.T) {
		pub := &fakePublisher{err: boom}
		w := NewSyncWorker(&fakeSnapshots{snap: snapshot("a")}, pub, nil, 0, nil)
		_, err := w.CheckSource(context.Background())
		assert.ErrorIs(t, err, boom)

		pub.err = nil
		published, err := w.CheckSource(context.Background())
		require.NoError(t, err)
		assert.True(t, published)
	})

	t.Run("prune failure is not fatal", func(t *testing.T) {
		w := NewSyncWorker(&fakeSnapshots{snap: snapshot("a")}, nil, &fakePruner{err: boom}, 2, nil)
		published, err := w.CheckSource(context.Background())
		require.NoError(t, err)
		assert.True(t, published)
	})
}

func TestRunStopsWithContext(t *testing.T) {
	src := &fakeSnapshots{snap: snapshot("a")}
	pub := &fakePublisher{}
	w := NewSyncWorker(src, pub, nil, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
