// Package store provides leave.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps users and leave requests in insertion-ordered maps.
// Listing returns values in the order their keys were first inserted.
type Memory struct {
	mu     sync.RWMutex
	users  *ordered[leave.User]
	leaves *ordered[leave.LeaveRequest]
}

var _ leave.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:  newOrdered[leave.User](),
		leaves: newOrdered[leave.LeaveRequest](),
	}
}

func (m *Memory) GetUser(_ context.Context, id string) (*leave.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users.get(id), nil
}

func (m *Memory) ListUsers(_ context.Context) ([]leave.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users.list(), nil
}

func (m *Memory) PutUser(_ context.Context, u leave.User) (*leave.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users.put(u.ID, u), nil
}

func (m *Memory) RemoveUser(_ context.Context, id string) (*leave.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users.remove(id), nil
}

func (m *Memory) GetLeave(_ context.Context, id string) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.leaves.get(id), nil
}

func (m *Memory) ListLeaves(_ context.Context) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.leaves.list(), nil
}

func (m *Memory) PutLeave(_ context.Context, r leave.LeaveRequest) (*leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaves.put(r.ID, r), nil
}

func (m *Memory) RemoveLeave(_ context.Context, id string) (*leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaves.remove(id), nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	users, leaves := m.users.clone(), m.leaves.clone()

	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.users, m.leaves = users, leaves
		return err
	}
	return nil
}

// txMemoryView operates on the parent's maps while WithTx holds its lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetUser(_ context.Context, id string) (*leave.User, error) {
	return tv.parent.users.get(id), nil
}

func (tv *txMemoryView) ListUsers(_ context.Context) ([]leave.User, error) {
	return tv.parent.users.list(), nil
}

func (tv *txMemoryView) PutUser(_ context.Context, u leave.User) (*leave.User, error) {
	return tv.parent.users.put(u.ID, u), nil
}

func (tv *txMemoryView) RemoveUser(_ context.Context, id string) (*leave.User, error) {
	return tv.parent.users.remove(id), nil
}

func (tv *txMemoryView) GetLeave(_ context.Context, id string) (*leave.LeaveRequest, error) {
	return tv.parent.leaves.get(id), nil
}

func (tv *txMemoryView) ListLeaves(_ context.Context) ([]leave.LeaveRequest, error) {
	return tv.parent.leaves.list(), nil
}

func (tv *txMemoryView) PutLeave(_ context.Context, r leave.LeaveRequest) (*leave.LeaveRequest, error) {
	return tv.parent.leaves.put(r.ID, r), nil
}

func (tv *txMemoryView) RemoveLeave(_ context.Context, id string) (*leave.LeaveRequest, error) {
	return tv.parent.leaves.remove(id), nil
}

// WithTx on a view nests into the enclosing transaction.
func (tv *txMemoryView) WithTx(_ context.Context, fn func(leave.Store) error) error {
	return fn(tv)
}

// =============================================================================
// ORDERED MAP
// =============================================================================

type ordered[V any] struct {
	keys   []string
	values map[string]V
}

func newOrdered[V any]() *ordered[V] {
	return &ordered[V]{values: make(map[string]V)}
}

func (o *ordered[V]) get(k string) *V {
	v, ok := o.values[k]
	if !ok {
		return nil
	}
	return &v
}

func (o *ordered[V]) list() []V {
	out := make([]V, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.values[k])
	}
	return out
}

func (o *ordered[V]) put(k string, v V) *V {
	prev, ok := o.values[k]
	o.values[k] = v
	if !ok {
		o.keys = append(o.keys, k)
		return nil
	}
	return &prev
}

func (o *ordered[V]) remove(k string) *V {
	prev, ok := o.values[k]
	if !ok {
		return nil
	}
	delete(o.values, k)
	for i, key := range o.keys {
		if key == k {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	return &prev
}

func (o *ordered[V]) clone() *ordered[V] {
	c := &ordered[V]{
		keys:   append([]string(nil), o.keys...),
		values: make(map[string]V, len(o.values)),
	}
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}
