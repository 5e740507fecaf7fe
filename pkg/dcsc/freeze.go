package dcsc

import (
	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/fabric"
)

// FreezeAndShear finalizes the round. Vertices reached by both floods form
// the SCC of their representative: they take MyMarker as their component
// label, go inactive, and detach symmetrically from every neighbor. The
// survivors then shear: any edge whose endpoints landed in different marking
// classes of the WCC crosses two of the disjoint sub-problems (predecessors
// only, descendants only, remainder) and is removed from both sides. Finally
// the survivors reset their per-round flags.
//
// Returns the cluster-wide number of vertices still active; the outer loop
// terminates when it reaches zero.
func FreezeAndShear(r *fabric.Rank, m *VertexMap) uint64 {
	sh := m.local(r)
	var remaining uint64

	for id, v := range sh.vertices {
		if !v.Active {
			continue
		}
		if v.MarkPred && v.MarkDesc {
			v.CompID = uint64(v.MyMarker)
			v.Active = false
			v.Out.Each(func(n uint32) bool {
				r.Send(detachVisit{vtx: n, sender: id, fromIn: true})
				return false
			})
			v.In.Each(func(n uint32) bool {
				r.Send(detachVisit{vtx: n, sender: id, fromIn: false})
				return false
			})
			v.Out.Clear()
			v.In.Clear()
			continue
		}
		remaining++
	}
	r.Barrier()

	// Shear pass: marks are still live here; they are compared, then reset
	// below once the probes have drained.
	for id, v := range sh.vertices {
		if !v.Active {
			continue
		}
		pred, desc := v.MarkPred, v.MarkDesc
		v.Out.Each(func(n uint32) bool {
			r.Send(shearProbe{vtx: n, sender: id, pred: pred, desc: desc})
			return false
		})
	}
	r.Barrier()

	for _, v := range sh.vertices {
		if !v.Active {
			continue
		}
		v.MarkPred = false
		v.MarkDesc = false
		v.MyMarker = NoVertex
		v.MyPivot = NoVertex
		v.WCCPivot = NoVertex
	}
	r.Barrier()

	return r.SumUint64(remaining)
}

func (m *VertexMap) applyDetach(sh *shard, msg detachVisit) {
	v := sh.vertices[msg.vtx]
	if v == nil {
		return
	}
	if msg.fromIn {
		v.In.Remove(msg.sender)
	} else {
		v.Out.Remove(msg.sender)
	}
}

func (m *VertexMap) applyShearProbe(r *fabric.Rank, sh *shard, msg shearProbe) {
	v := sh.vertices[msg.vtx]
	if v == nil || !v.Active {
		return
	}
	if v.MarkPred != msg.pred || v.MarkDesc != msg.desc {
		v.In.Remove(msg.sender)
		r.Send(shearCut{vtx: msg.sender, nbr: msg.vtx})
	}
}

func (m *VertexMap) applyShearCut(sh *shard, msg shearCut) {
	v := sh.vertices[msg.vtx]
	if v == nil {
		return
	}
	v.Out.Remove(msg.nbr)
}
