// Package sessions tracks per-operator conversational state, such as which
// list the next plain-text message should be added to.
package sessions

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/blockwatch/internal/watch/domain"
)

// Session is the pending state for one operator.
type Session struct {
	AwaitingList domain.List
}

// Awaiting reports whether the operator owes us a domain.
func (s Session) Awaiting() bool { return s.AwaitingList != "" }

// Store is an LRU-bounded map of operator id to Session. The least recently
// used session is dropped when the store is full. Safe for concurrent use.
type Store struct {
	lru *lru.Cache[int64, Session]
}

// New creates a Store holding at most size sessions.
func New(size int) (*Store, error) {
	if size <= 0 {
		return nil, fmt.Errorf("session store size must be positive, got %d", size)
	}
	cache, err := lru.New[int64, Session](size)
	if err != nil {
		return nil, err
	}
	return &Store{lru: cache}, nil
}

// Await marks the operator as expecting a domain for list.
func (s *Store) Await(operatorID int64, list domain.List) {
	s.lru.Add(operatorID, Session{AwaitingList: list})
}

// Take returns and clears the operator's session.
func (s *Store) Take(operatorID int64) (Session, bool) {
	sess, ok := s.lru.Peek(operatorID)
	if ok {
		s.lru.Remove(operatorID)
	}
	return sess, ok
}

// Clear drops the operator's session.
func (s *Store) Clear(operatorID int64) {
	s.lru.Remove(operatorID)
}
