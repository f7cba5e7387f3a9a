// SPDX-License-Identifier: GPL-3.0-only

package commons

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	ScopeMessage  = "msg"
	ScopeDelivery = "dlv"
)

// IDGenerator produces identifiers that are unique for the life of the process
// and safe to use as map keys.
type IDGenerator interface {
	NewID(scope string) string
}

// UUIDGenerator prefixes a version 7 UUID (millisecond clock plus random bits)
// with the scope.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(scope string) string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		id = uuid.New()
	}
	return scope + "_" + id.String()
}

// SequenceGenerator hands out deterministic ids from a shared atomic counter.
type SequenceGenerator struct {
	next atomic.Uint64
}

func (g *SequenceGenerator) NewID(scope string) string {
	return fmt.Sprintf("%s_%d", scope, g.next.Add(1))
}
