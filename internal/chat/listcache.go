package chat

import (
	"sort"
	"sync"

	"forumchat/internal/domain"
)

// ListCache is the in-memory projection of the viewer's conversation
// summaries. It is seeded once over REST and afterwards kept consistent
// exclusively by push updates from the list channel; routine changes never
// trigger a re-poll.
type ListCache struct {
	mu     sync.Mutex
	convs  []domain.Conversation
	filter *domain.ConversationStatus
}

func NewListCache() *ListCache {
	return &ListCache{}
}

// Seed replaces the cache with the bulk-fetched list.
func (c *ListCache) Seed(convs []domain.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.convs = make([]domain.Conversation, len(convs))
	copy(c.convs, convs)
	c.sortLocked()
}

// ApplyUpdate applies a push update: a payload replaces the existing entry
// in place or is prepended when the id is new; a nil payload removes the
// entry (the conversation no longer exists server-side). The list is
// re-sorted by most recent activity after every change.
func (c *ListCache) ApplyUpdate(id domain.ID, conv *domain.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(id)
	switch {
	case conv == nil:
		if idx >= 0 {
			c.convs = append(c.convs[:idx], c.convs[idx+1:]...)
		}
	case idx >= 0:
		c.convs[idx] = *conv
	default:
		c.convs = append([]domain.Conversation{*conv}, c.convs...)
	}
	c.sortLocked()
}

// SetStatus locally guesses the new status ahead of server confirmation,
// for perceived responsiveness. The next push update is the source of truth
// and overwrites this guess.
func (c *ListCache) SetStatus(id domain.ID, status domain.ConversationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexLocked(id); idx >= 0 {
		c.convs[idx].Status = status
	}
}

// SetFilter restricts the view to conversations with the given status.
// The filter is a view over the cache, never a mutation of it.
func (c *ListCache) SetFilter(status domain.ConversationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = &status
}

// ClearFilter removes the status filter.
func (c *ListCache) ClearFilter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = nil
}

// Conversations returns the filtered view, ordered descending by most
// recent activity.
func (c *ListCache) Conversations() []domain.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Conversation, 0, len(c.convs))
	for _, conv := range c.convs {
		if c.filter != nil && conv.Status != *c.filter {
			continue
		}
		out = append(out, conv)
	}
	return out
}

// All returns the unfiltered cache contents.
func (c *ListCache) All() []domain.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Conversation, len(c.convs))
	copy(out, c.convs)
	return out
}

// Get looks up a conversation by id, ignoring the filter.
func (c *ListCache) Get(id domain.ID) (domain.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexLocked(id); idx >= 0 {
		return c.convs[idx], true
	}
	return domain.Conversation{}, false
}

func (c *ListCache) indexLocked(id domain.ID) int {
	for i := range c.convs {
		if c.convs[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *ListCache) sortLocked() {
	sort.SliceStable(c.convs, func(i, j int) bool {
		return c.convs[i].LastActivity().After(c.convs[j].LastActivity())
	})
}
