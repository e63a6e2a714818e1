package dispatch

import (
	"github.com/teslashibe/go-molty/pkg/protocol"
	"github.com/teslashibe/go-molty/pkg/scheduler"
)

// Fanout delivers each event to every emitter in order.
type Fanout []scheduler.Emitter

// Emit implements scheduler.Emitter.
func (f Fanout) Emit(e protocol.Event) {
	for _, em := range f {
		em.Emit(e)
	}
}
