package ledger

import "sync"

// Broker fans committed changes out to subscribers.
//
// Each subscriber holds at most one pending Change. When a subscriber has not
// read its pending change yet, a newer one is merged into it instead of
// queueing, so slow readers see the latest version with the union of topics
// and publishers never block.
type Broker struct {
	mu      sync.Mutex
	version uint64
	nextID  int
	subs    map[int]chan Change
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Change)}
}

// Version returns the version of the last published change.
func (b *Broker) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Publish assigns the next version to a change over topics and delivers it.
func (b *Broker) Publish(topics []Topic) Change {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.version++
	set := make(topicSet)
	set.add(topics...)
	change := Change{Version: b.version, Topics: set.list()}

	for _, ch := range b.subs {
		pending := change
		select {
		case old := <-ch:
			pending = old.merge(change)
		default:
		}
		// Only Publish sends, under b.mu, so the slot is free here.
		ch <- pending
	}
	return change
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel.
func (b *Broker) Subscribe() (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Change, 1)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}
