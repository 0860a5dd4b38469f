package bot

import (
	"sync"

	"taxbook/internal/models"
)

type inputStep string

const (
	inputNone     inputStep = "none"
	inputComments inputStep = "comments"
	inputEmail    inputStep = "email"
	inputPassword inputStep = "password"
	inputExpense  inputStep = "expense"
)

// screenState is per-user UI state that never reaches the booking draft:
// the staff and date picked before a slot, the slots on screen and what
// free text the bot is waiting for.
type screenState struct {
	StaffID   string
	Date      string
	Slots     []models.Slot
	Input     inputStep
	Email     string
	ExpenseID int64
}

type stateStore struct {
	mu sync.Mutex
	m  map[int64]*screenState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[int64]*screenState)}
}

// update runs fn on the user's state under the store lock.
func (s *stateStore) update(userID int64, fn func(st *screenState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		st = &screenState{Input: inputNone}
		s.m[userID] = st
	}
	fn(st)
}

// get returns a copy of the user's state.
func (s *stateStore) get(userID int64) screenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		return screenState{Input: inputNone}
	}
	cp := *st
	cp.Slots = append([]models.Slot(nil), st.Slots...)
	return cp
}

func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
