package rendezvous

import "sync"

// IDs hands out the small numbers that prefix passwords. An id is reused
// once the sender holding it disconnects.
type IDs struct {
	mu    sync.Mutex
	bound map[int]struct{}
}

func NewIDs() *IDs {
	return &IDs{bound: make(map[int]struct{})}
}

// Bind reserves the lowest free id.
func (ids *IDs) Bind() int {
	ids.mu.Lock()
	defer ids.mu.Unlock()
	id := 1
	for ; ; id++ {
		if _, taken := ids.bound[id]; !taken {
			break
		}
	}
	ids.bound[id] = struct{}{}
	return id
}

func (ids *IDs) Release(id int) {
	ids.mu.Lock()
	defer ids.mu.Unlock()
	delete(ids.bound, id)
}
