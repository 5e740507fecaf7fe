package dcsc

import (
	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/fabric"
)

// PropagateMarks floods reachability from every WCC representative: forward
// along out-edges setting MarkDesc, backward along in-edges setting MarkPred.
// The representative is the vertex whose own pivot rank won its WCC. Both
// floods carry the WCC pivot, and receivers whose WCCPivot differs drop the
// message, which confines each flood to its own component.
//
// Marks only flip false→true and a marked vertex never re-forwards, so the
// flood is idempotent under the unordered delivery of messages from different
// origins.
func PropagateMarks(r *fabric.Rank, m *VertexMap) {
	sh := m.local(r)
	for id, v := range sh.vertices {
		if !v.Active || v.WCCPivot != v.MyPivot {
			continue
		}
		v.MarkDesc = true
		v.MarkPred = true
		v.MyMarker = id

		pivot := v.WCCPivot
		v.In.Each(func(n uint32) bool {
			r.Send(markVisit{vtx: n, pivot: pivot, marker: id, forward: false})
			return false
		})
		v.Out.Each(func(n uint32) bool {
			r.Send(markVisit{vtx: n, pivot: pivot, marker: id, forward: true})
			return false
		})
	}
	r.Barrier()
}

func (m *VertexMap) applyMark(r *fabric.Rank, sh *shard, msg markVisit) {
	v := sh.vertices[msg.vtx]
	if v == nil || !v.Active {
		return
	}
	if msg.forward {
		if v.MarkDesc || msg.pivot != v.WCCPivot {
			return
		}
		v.MarkDesc = true
		v.MyMarker = msg.marker
		v.Out.Each(func(n uint32) bool {
			r.Send(markVisit{vtx: n, pivot: msg.pivot, marker: msg.marker, forward: true})
			return false
		})
		return
	}

	if v.MarkPred || msg.pivot != v.WCCPivot {
		return
	}
	v.MarkPred = true
	v.MyMarker = msg.marker
	v.In.Each(func(n uint32) bool {
		r.Send(markVisit{vtx: n, pivot: msg.pivot, marker: msg.marker, forward: false})
		return false
	})
}
