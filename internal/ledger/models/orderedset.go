package models

import (
	"encoding/json"

	"escrowd/pkg/domain"
)

// AccountSet is an insertion-ordered set of account identities. It replaces
// the usual flag-map-plus-array dual bookkeeping with one structure so the
// two can never drift apart.
//
// Iteration order is insertion order until a removal occurs: Remove swaps the
// last element into the vacated slot, so the order of remaining entries after
// a removal is unspecified. Callers must not rely on post-removal order.
type AccountSet struct {
	order []domain.AccountID
	index map[domain.AccountID]int
}

// Add appends the account unless already present. Reports whether the set
// changed.
func (s *AccountSet) Add(account domain.AccountID) bool {
	if s.Contains(account) {
		return false
	}
	if s.index == nil {
		s.index = make(map[domain.AccountID]int)
	}
	s.index[account] = len(s.order)
	s.order = append(s.order, account)
	return true
}

// Remove deletes the account by swapping the last entry into its slot.
// Reports whether the account was present.
func (s *AccountSet) Remove(account domain.AccountID) bool {
	pos, ok := s.index[account]
	if !ok {
		return false
	}
	last := len(s.order) - 1
	if pos != last {
		moved := s.order[last]
		s.order[pos] = moved
		s.index[moved] = pos
	}
	s.order = s.order[:last]
	delete(s.index, account)
	return true
}

// Contains reports membership.
func (s *AccountSet) Contains(account domain.AccountID) bool {
	_, ok := s.index[account]
	return ok
}

// Len returns the number of members.
func (s *AccountSet) Len() int {
	return len(s.order)
}

// At returns the i-th member in iteration order.
func (s *AccountSet) At(i int) domain.AccountID {
	return s.order[i]
}

// Accounts returns the members in iteration order. The slice is a copy.
func (s *AccountSet) Accounts() []domain.AccountID {
	out := make([]domain.AccountID, len(s.order))
	copy(out, s.order)
	return out
}

// Clone returns an independent copy.
func (s *AccountSet) Clone() AccountSet {
	cloned := AccountSet{}
	if len(s.order) == 0 {
		return cloned
	}
	cloned.order = make([]domain.AccountID, len(s.order))
	copy(cloned.order, s.order)
	cloned.index = make(map[domain.AccountID]int, len(s.index))
	for account, pos := range s.index {
		cloned.index[account] = pos
	}
	return cloned
}

// MarshalJSON serializes the set as an ordered array.
func (s AccountSet) MarshalJSON() ([]byte, error) {
	if s.order == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.order)
}

// UnmarshalJSON restores the set from an ordered array, rebuilding the
// position index. Duplicate entries in the input are collapsed.
func (s *AccountSet) UnmarshalJSON(b []byte) error {
	var order []domain.AccountID
	if err := json.Unmarshal(b, &order); err != nil {
		return err
	}
	s.order = nil
	s.index = nil
	for _, account := range order {
		s.Add(account)
	}
	return nil
}
