package game

// Subscriber receives a Snapshot after every state change. Subscribers run
// on the match owner's goroutine and must not block or call back into the
// match synchronously.
type Subscriber interface {
	OnSnapshot(Snapshot)
}

// SubscriberFunc adapts a function to a Subscriber.
type SubscriberFunc func(Snapshot)

// OnSnapshot implements Subscriber.
func (f SubscriberFunc) OnSnapshot(s Snapshot) { f(s) }

type subscription struct {
	id  int
	sub Subscriber
}

// subscribers is a basic in-memory fan-out.
type subscribers struct {
	next int
	list []subscription
}

func (s *subscribers) add(sub Subscriber) int {
	s.next++
	s.list = append(s.list, subscription{id: s.next, sub: sub})
	return s.next
}

func (s *subscribers) remove(id int) {
	for i, entry := range s.list {
		if entry.id == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

func (s *subscribers) publish(snap Snapshot) {
	list := append([]subscription(nil), s.list...)
	for _, entry := range list {
		entry.sub.OnSnapshot(snap)
	}
}
