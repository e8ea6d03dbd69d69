package state

import (
	"errors"
	"sync"

	"github.com/wfunc/lobbyserver/models"
)

// ErrTransitionNotAllowed is returned when a room status transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Machine 房间状态机
//
// A room starts in waiting and moves to full exactly once, when a join brings
// the player count to capacity. No further transitions are modeled; gameplay
// after that point is outside the lobby.
type Machine struct {
	current     models.RoomStatus
	transitions map[models.RoomStatus][]models.RoomStatus
	mutex       sync.RWMutex
}

// NewRoomMachine returns a machine in the waiting state with the single
// waiting -> full transition registered.
func NewRoomMachine() *Machine {
	return &Machine{
		current: models.RoomWaiting,
		transitions: map[models.RoomStatus][]models.RoomStatus{
			models.RoomWaiting: {models.RoomFull},
		},
	}
}

func (m *Machine) Current() models.RoomStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// Transition moves to the target status if the transition table allows it.
func (m *Machine) Transition(to models.RoomStatus) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, allowed := range m.transitions[m.current] {
		if allowed == to {
			m.current = to
			return nil
		}
	}
	return ErrTransitionNotAllowed
}
