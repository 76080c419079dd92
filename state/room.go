package state

import (
	"slices"
	"sync"
)

// Room groups devices by id. It never owns them.
type Room struct {
	name string
	info string

	mu        sync.RWMutex
	deviceIDs []int
}

func NewRoom(name, info string) *Room {
	return &Room{name: name, info: info}
}

func (r *Room) Name() string { return r.name }
func (r *Room) Info() string { return r.info }

// AddDevice adds id to the room. Adding the same id twice is a no-op.
func (r *Room) AddDevice(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.deviceIDs, id) {
		return
	}
	r.deviceIDs = append(r.deviceIDs, id)
}

// RemoveDevice reports whether id was in the room.
func (r *Room) RemoveDevice(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.deviceIDs, id)
	if i < 0 {
		return false
	}
	r.deviceIDs = slices.Delete(r.deviceIDs, i, i+1)
	return true
}

func (r *Room) DeviceIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.deviceIDs)
}
