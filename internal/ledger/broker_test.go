package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroker_PublishAssignsIncreasingVersions(t *testing.T) {
	t.Parallel()
	b := NewBroker()

	first := b.Publish([]Topic{TopicShifts})
	second := b.Publish([]Topic{TopicJobs})

	require.Equal(t, uint64(1), first.Version)
	require.Equal(t, uint64(2), second.Version)
	require.Equal(t, uint64(2), b.Version())
}

func TestBroker_DeliversToSubscribers(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish([]Topic{TopicExpenses, TopicExpenses})

	change := <-ch
	require.Equal(t, uint64(1), change.Version)
	require.Equal(t, []Topic{TopicExpenses}, change.Topics)
	require.True(t, change.Touches(TopicExpenses))
	require.False(t, change.Touches(TopicShifts, TopicJobs))
}

func TestBroker_CoalescesUnreadChanges(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish([]Topic{TopicJobs})
	b.Publish([]Topic{TopicSettings})
	b.Publish([]Topic{TopicShifts})

	change := <-ch
	require.Equal(t, uint64(3), change.Version)
	require.Equal(t, []Topic{TopicShifts, TopicJobs, TopicSettings}, change.Topics)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra change %+v", extra)
	default:
	}
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	ch, cancel := b.Subscribe()

	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	// Publishing after cancel must not panic on the closed channel.
	b.Publish([]Topic{TopicShifts})
}

func TestBroker_ConcurrentPublishersNeverBlock(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	ch, cancel := b.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish([]Topic{TopicJobs})
		}()
	}
	wg.Wait()

	change := <-ch
	require.Equal(t, uint64(50), change.Version)
}
