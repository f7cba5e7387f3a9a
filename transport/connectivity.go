// SPDX-License-Identifier: GPL-3.0-only

package transport

import "sync/atomic"

// Switch is the process-wide connectivity flag. A change is seen by the next
// Send; calls already in flight keep the value they started with.
type Switch struct {
	offline atomic.Bool
}

func NewSwitch(offline bool) *Switch {
	s := &Switch{}
	s.offline.Store(offline)
	return s
}

func (s *Switch) SetOffline(offline bool) {
	s.offline.Store(offline)
}

func (s *Switch) Offline() bool {
	return s.offline.Load()
}

// Toggle flips the flag and returns the new offline value.
func (s *Switch) Toggle() bool {
	for {
		cur := s.offline.Load()
		if s.offline.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}
