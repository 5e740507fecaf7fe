package dcsc

import (
	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/fabric"
)

// CountSCCs is a collective returning the number of components. Every SCC has
// exactly one anchor: the vertex whose label equals its own ID (singletons
// label themselves during trim; frozen vertices take their representative's
// ID, and the representative is its own marker).
func CountSCCs(r *fabric.Rank, m *VertexMap) uint64 {
	var local uint64
	m.LocalForAll(r, func(id uint32, v *Vertex) {
		if v.CompID == uint64(id) {
			local++
		}
	})
	return r.SumUint64(local)
}

// CountLargestSCC is a collective returning the size of the biggest
// component. Sizes are tallied on the rank owning each component's anchor ID,
// then reduced.
func CountLargestSCC(r *fabric.Rank, m *VertexMap) uint64 {
	sh := m.local(r)
	clear(sh.tallies)
	r.Barrier()

	m.LocalForAll(r, func(id uint32, v *Vertex) {
		if v.CompID != NoComponent {
			r.Send(tallyVisit{comp: uint32(v.CompID)})
		}
	})
	r.Barrier()

	var localMax uint64
	for _, n := range sh.tallies {
		if n > localMax {
			localMax = n
		}
	}
	return r.MaxUint64(localMax)
}
