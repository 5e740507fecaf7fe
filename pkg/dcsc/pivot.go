package dcsc

import (
	"container/heap"
	"fmt"

	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/fabric"
	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/permuter"
)

// goldenRatio64 seeds the per-round permutation; adding the round index gives
// every round an independent pivot ordering.
const goldenRatio64 uint64 = 0x9E3779B97F4A7C15

type pivotItem struct {
	pivot, vtx uint32
}

// pivotQueue is a rank-local min-heap of (pivot, vertex) pairs, drained by a
// pre-barrier pump so that low pivot ranks propagate first.
type pivotQueue []pivotItem

func (q pivotQueue) Len() int { return len(q) }

func (q pivotQueue) Less(i, j int) bool {
	if q[i].pivot != q[j].pivot {
		return q[i].pivot < q[j].pivot
	}
	return q[i].vtx < q[j].vtx
}

func (q pivotQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pivotQueue) Push(x any) { *q = append(*q, x.(pivotItem)) }

func (q *pivotQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// InitWCCPivots assigns every active vertex its pivot rank for round iter and
// propagates the minimum rank across each weakly connected component, so that
// afterwards WCCPivot identifies the component's elected representative.
//
// Propagation is label-propagation of the minimum over undirected edges. The
// work queue is seeded only with vertices that are local minima of the
// permutation on their closed neighborhood; that suppresses sends which would
// be overwritten anyway and is purely an optimization.
func InitWCCPivots(r *fabric.Rank, m *VertexMap, iter uint64, minVtx, maxVtx uint32) {
	perm := permuter.New(minVtx, maxVtx, goldenRatio64+iter)
	sh := m.local(r)

	for id, v := range sh.vertices {
		if v.Active {
			v.MyPivot = perm.Permute(id)
			v.WCCPivot = v.MyPivot
			v.MyMarker = id
		}
	}
	r.Barrier()

	for id, v := range sh.vertices {
		if !v.Active {
			continue
		}
		if hasSmallerNeighbor(perm, v) {
			continue
		}
		heap.Push(&sh.queue, pivotItem{pivot: v.WCCPivot, vtx: id})
		r.OnPreBarrier(m.pivotPump(r))
	}
	r.Barrier()

	if len(sh.queue) != 0 {
		panic(fmt.Sprintf("dcsc: rank %d pivot queue holds %d entries after barrier", r.ID(), len(sh.queue)))
	}
}

// hasSmallerNeighbor reports whether any undirected neighbor's pivot rank
// undercuts v's own.
func hasSmallerNeighbor(perm *permuter.Permuter, v *Vertex) bool {
	smaller := false
	check := func(n uint32) bool {
		if perm.Permute(n) < v.WCCPivot {
			smaller = true
			return true
		}
		return false
	}
	v.Out.Each(check)
	if !smaller {
		v.In.Each(check)
	}
	return smaller
}

// pivotPump pops one queue entry and, unless it went stale, re-broadcasts the
// vertex's current pivot to all undirected neighbors. One pump is registered
// per push, so the barrier keeps pumping exactly until the queue is dry.
func (m *VertexMap) pivotPump(r *fabric.Rank) func() {
	return func() {
		sh := m.local(r)
		if len(sh.queue) == 0 {
			return
		}
		item := heap.Pop(&sh.queue).(pivotItem)
		v := sh.vertices[item.vtx]
		if v == nil || item.pivot != v.WCCPivot {
			return // stale: a lower rank arrived after this entry was queued
		}
		send := func(n uint32) bool {
			r.Send(pivotVisit{vtx: n, pivot: v.WCCPivot})
			return false
		}
		v.Out.Each(send)
		v.In.Each(send)
	}
}

func (m *VertexMap) applyPivot(r *fabric.Rank, sh *shard, msg pivotVisit) {
	v := sh.vertices[msg.vtx]
	if v == nil || !v.Active {
		return
	}
	if msg.pivot < v.WCCPivot {
		v.WCCPivot = msg.pivot
		heap.Push(&sh.queue, pivotItem{pivot: msg.pivot, vtx: msg.vtx})
		r.OnPreBarrier(m.pivotPump(r))
	}
}
