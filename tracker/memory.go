package tracker

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/corvana/dispatch/types"
)

// Memory is an in-process TrackerClient for tests and examples.
//
// It mirrors the behavior the coordinator relies on from a real tracker:
// label adds are idempotent, assignee sets are idempotent, and every
// mutation appends to the item's event history. All operations are
// counted per operation name so tests can assert call-count properties.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	items    map[string]*types.WorkItem
	comments map[string][]string
	events   map[string][]types.ItemEvent
	calls    map[string]int
	failures map[string][]error
	clock    types.Clock
}

// Compile-time assertion that Memory implements TrackerClient.
var _ types.TrackerClient = (*Memory)(nil)

// NewMemory creates an empty in-memory tracker.
func NewMemory() *Memory {
	return &Memory{
		items:    make(map[string]*types.WorkItem),
		comments: make(map[string][]string),
		events:   make(map[string][]types.ItemEvent),
		calls:    make(map[string]int),
		failures: make(map[string][]error),
		clock:    types.SystemClock(),
	}
}

// SetClock overrides the clock used for event timestamps.
func (m *Memory) SetClock(clock types.Clock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

// Seed adds or replaces an item without counting a call or emitting events.
func (m *Memory) Seed(item types.WorkItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := item
	cp.Labels = slices.Clone(item.Labels)
	m.items[item.ID] = &cp
}

// FailNext queues err to be returned by the next call to op. Multiple
// queued errors are consumed in order, one per call.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// CallCount returns how many times op has been invoked.
func (m *Memory) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls[op]
}

// Comments returns the comments recorded for an item.
func (m *Memory) Comments(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.comments[id])
}

// begin counts the call and pops any queued failure for op.
// Caller must hold m.mu.
func (m *Memory) begin(op string) error {
	m.calls[op]++
	if queued := m.failures[op]; len(queued) > 0 {
		err := queued[0]
		m.failures[op] = queued[1:]

		return err
	}

	return nil
}

// ListItems returns items matching filter within window, ordered by ID.
func (m *Memory) ListItems(_ context.Context, filter types.ItemFilter, window types.Window) ([]types.WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("list_items"); err != nil {
		return nil, err
	}

	var out []types.WorkItem
	for _, item := range m.items {
		if !matchesFilter(item, filter) || !window.Contains(item.CreatedAt) {
			continue
		}
		cp := *item
		cp.Labels = slices.Clone(item.Labels)
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// GetItem returns a copy of the item's current state.
func (m *Memory) GetItem(_ context.Context, id string) (*types.WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("get_item"); err != nil {
		return nil, err
	}

	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrItemNotFound, id)
	}

	cp := *item
	cp.Labels = slices.Clone(item.Labels)

	return &cp, nil
}

// SetLabel adds or removes a label. Duplicate adds and removes of absent
// labels are no-ops, matching the tracker idempotency contract.
func (m *Memory) SetLabel(_ context.Context, id, label string, present bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("set_label"); err != nil {
		return err
	}

	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrItemNotFound, id)
	}

	has := slices.Contains(item.Labels, label)
	switch {
	case present && !has:
		item.Labels = append(item.Labels, label)
		m.appendEvent(id, "labeled", label)
	case !present && has:
		item.Labels = slices.DeleteFunc(item.Labels, func(l string) bool { return l == label })
		m.appendEvent(id, "unlabeled", label)
	}

	return nil
}

// SetAssignee sets the item's assignee; empty workerID unassigns.
func (m *Memory) SetAssignee(_ context.Context, id, workerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("set_assignee"); err != nil {
		return err
	}

	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrItemNotFound, id)
	}

	if item.Assignee == workerID {
		return nil
	}
	item.Assignee = workerID
	if workerID == "" {
		m.appendEvent(id, "unassigned", "")
	} else {
		m.appendEvent(id, "assigned", workerID)
	}

	return nil
}

// AddComment appends a comment to the item.
func (m *Memory) AddComment(_ context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("add_comment"); err != nil {
		return err
	}

	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("%w: %s", types.ErrItemNotFound, id)
	}
	m.comments[id] = append(m.comments[id], text)
	m.appendEvent(id, "commented", "")

	return nil
}

// ListComments returns the item's comments, oldest first.
func (m *Memory) ListComments(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("list_comments"); err != nil {
		return nil, err
	}

	if _, ok := m.items[id]; !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrItemNotFound, id)
	}

	return slices.Clone(m.comments[id]), nil
}

// ListEvents returns the item's change history, oldest first.
func (m *Memory) ListEvents(_ context.Context, id string) ([]types.ItemEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("list_events"); err != nil {
		return nil, err
	}

	if _, ok := m.items[id]; !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrItemNotFound, id)
	}

	return slices.Clone(m.events[id]), nil
}

// OpenChangeRequest records a change request and returns a synthetic ID.
func (m *Memory) OpenChangeRequest(_ context.Context, branch, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("open_change_request"); err != nil {
		return "", err
	}

	return fmt.Sprintf("cr-%s-%d", branch, m.calls["open_change_request"]), nil
}

// appendEvent records an event with the actor in the detail position.
// Caller must hold m.mu.
func (m *Memory) appendEvent(id, kind, actor string) {
	m.events[id] = append(m.events[id], types.ItemEvent{
		Kind:  kind,
		Actor: actor,
		At:    m.clock.Now(),
	})
}

func matchesFilter(item *types.WorkItem, filter types.ItemFilter) bool {
	for _, label := range filter.Labels {
		if !slices.Contains(item.Labels, label) {
			return false
		}
	}
	switch filter.State {
	case "open":
		if item.ClosedAt != nil {
			return false
		}
	case "closed":
		if item.ClosedAt == nil {
			return false
		}
	}
	if filter.Unassigned && item.Assignee != "" {
		return false
	}

	return true
}

// Close is a convenience for tests: it closes an item at the given time.
func (m *Memory) Close(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[id]; ok {
		item.ClosedAt = &at
	}
}
