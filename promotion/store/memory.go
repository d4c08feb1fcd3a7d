// Package store provides in-memory roster and ladder sources.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/warp/promotion-engine/promotion"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	members map[promotion.MemberID]promotion.Member
	ladder  promotion.Ladder
}

func NewMemory(ladder promotion.Ladder, members ...promotion.Member) *Memory {
	m := &Memory{
		members: make(map[promotion.MemberID]promotion.Member, len(members)),
		ladder:  promotion.NewLadder(ladder.Tiers...),
	}
	for _, mem := range members {
		m.members[mem.ID] = mem
	}
	return m
}

// Roster returns a copy of every member, most senior first.
func (m *Memory) Roster(_ context.Context) ([]promotion.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]promotion.Member, 0, len(m.members))
	for _, mem := range m.members {
		out = append(out, mem)
	}
	slices.SortFunc(out, func(a, b promotion.Member) int {
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex - b.OrderIndex
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *Memory) Ladder(_ context.Context) (promotion.Ladder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return promotion.NewLadder(m.ladder.Tiers...), nil
}

// SaveMember inserts or replaces a member. Returns
// promotion.ErrDuplicateSeniority when another member holds its order_index.
func (m *Memory) SaveMember(_ context.Context, mem promotion.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return saveUnique(m.members, mem)
}

func (m *Memory) SaveLadder(_ context.Context, ladder promotion.Ladder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ladder = promotion.NewLadder(ladder.Tiers...)
	return nil
}

// SaveRoster inserts or replaces every given member. Nothing is saved if
// any of them clashes on order_index.
func (m *Memory) SaveRoster(_ context.Context, members []promotion.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[promotion.MemberID]promotion.Member, len(m.members)+len(members))
	for id, mem := range m.members {
		next[id] = mem
	}
	for _, mem := range members {
		if err := saveUnique(next, mem); err != nil {
			return err
		}
	}
	m.members = next
	return nil
}

func saveUnique(members map[promotion.MemberID]promotion.Member, mem promotion.Member) error {
	for id, other := range members {
		if id != mem.ID && other.OrderIndex == mem.OrderIndex {
			return fmt.Errorf("%w: %d", promotion.ErrDuplicateSeniority, mem.OrderIndex)
		}
	}
	members[mem.ID] = mem
	return nil
}

// SetFrozen flips the frozen flag. Returns promotion.ErrMemberNotFound for
// unknown ids.
func (m *Memory) SetFrozen(_ context.Context, id promotion.MemberID, frozen bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[id]
	if !ok {
		return promotion.ErrMemberNotFound
	}
	mem.Frozen = frozen
	m.members[id] = mem
	return nil
}

func (m *Memory) DeleteMember(_ context.Context, id promotion.MemberID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[id]; !ok {
		return promotion.ErrMemberNotFound
	}
	delete(m.members, id)
	return nil
}

// Reset drops every member and tier.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = make(map[promotion.MemberID]promotion.Member)
	m.ladder = promotion.Ladder{}
	return nil
}
