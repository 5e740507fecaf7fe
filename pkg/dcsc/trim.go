package dcsc

import (
	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/fabric"
)

// TrimTrivial removes every vertex that can only form a singleton SCC: a
// vertex with no active in-edges lies on no cycle, and symmetrically for
// out-edges. Removal cascades, since dropping a vertex may empty a neighbor's
// adjacency side; the barrier drains all cascades.
//
// Running the phase twice in a row is a no-op the second time: the scan only
// acts on vertices with an empty side, and all of those were finalized on the
// first pass.
func TrimTrivial(r *fabric.Rank, m *VertexMap) {
	sh := m.local(r)
	for id, v := range sh.vertices {
		if !v.Active {
			continue
		}
		if v.In.IsEmpty() || v.Out.IsEmpty() {
			trimVertex(r, id, v)
		}
	}
	r.Barrier()
}

// trimVertex finalizes v as the singleton component {id} and tells its
// remaining neighbors to forget it. A vertex with both sides empty sends
// nothing: it has no neighbor left to tell.
func trimVertex(r *fabric.Rank, id uint32, v *Vertex) {
	if v.In.IsEmpty() {
		v.CompID = uint64(id)
		v.Active = false
		v.Out.Each(func(n uint32) bool {
			r.Send(trimVisit{vtx: n, sender: id, forward: true})
			return false
		})
		v.Out.Clear()
		return
	}
	if v.Out.IsEmpty() {
		v.CompID = uint64(id)
		v.Active = false
		v.In.Each(func(n uint32) bool {
			r.Send(trimVisit{vtx: n, sender: id, forward: false})
			return false
		})
		v.In.Clear()
	}
}

func (m *VertexMap) applyTrim(r *fabric.Rank, sh *shard, msg trimVisit) {
	v := sh.vertices[msg.vtx]
	if v == nil || !v.Active {
		return
	}
	if msg.forward {
		v.In.Remove(msg.sender)
	} else {
		v.Out.Remove(msg.sender)
	}
	if v.In.IsEmpty() || v.Out.IsEmpty() {
		trimVertex(r, msg.vtx, v)
	}
}
