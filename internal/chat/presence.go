package chat

import (
	"sync"
	"time"
)

const typingIdle = 3 * time.Second

// Tracker maintains the set of counterpart display names currently typing
// in one conversation. Membership is add-on-start, remove-on-stop; the
// protocol has no automatic expiry, liveness is cooperative.
type Tracker struct {
	mu    sync.Mutex
	names []string
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Set adds or removes a name from the typing set. Adding a present name or
// removing an absent one is a no-op.
func (t *Tracker) Set(name string, typing bool) {
	if name == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, n := range t.names {
		if n == name {
			if !typing {
				t.names = append(t.names[:i], t.names[i+1:]...)
			}
			return
		}
	}
	if typing {
		t.names = append(t.names, name)
	}
}

// Names returns the current typing set in arrival order.
func (t *Tracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Count returns the number of counterparts currently typing.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.names)
}

// Notifier debounces the local user's outbound typing signals: a start
// signal on the first keystroke, then a stop signal once no keystroke has
// arrived for the idle interval. Only one idle timer is ever pending; each
// keystroke resets it rather than stacking a new one.
type Notifier struct {
	send func(isTyping bool) error
	idle time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	active bool
	// seq invalidates idle timers superseded by a later keystroke. A timer
	// can fire while a keystroke holds the mutex; Stop returning false is
	// not enough to keep that stale expiry from emitting a stop signal.
	seq int
}

func NewNotifier(send func(isTyping bool) error) *Notifier {
	return &Notifier{send: send, idle: typingIdle}
}

// Keystroke records local typing activity. Send failures degrade silently:
// the indicator simply stops updating while the socket is down.
func (n *Notifier) Keystroke() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.active {
		if err := n.send(true); err != nil {
			return
		}
		n.active = true
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	seq := n.seq
	n.timer = time.AfterFunc(n.idle, func() { n.expire(seq) })
}

func (n *Notifier) expire(seq int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if seq != n.seq || !n.active {
		return
	}
	n.active = false
	_ = n.send(false)
}

// Stop cancels the pending idle timer and, if a start signal was emitted,
// sends the stop signal immediately. Used on teardown.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	if n.active {
		n.active = false
		_ = n.send(false)
	}
}
