// Package dcsc enumerates strongly connected components of a directed graph
// with the divide-and-conquer strong connectivity algorithm, run in
// bulk-synchronous rounds over a rank fabric. Each round trims trivial
// components, elects a pivot per weakly connected component, floods
// reachability marks forward and backward from the pivots, freezes the
// both-marked intersection as a finished SCC, and shears the edges that now
// cross sub-problems.
package dcsc

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/fabric"
)

const (
	// NoComponent is the component label of a vertex that has not been
	// frozen yet.
	NoComponent uint64 = math.MaxUint64

	// NoVertex is the reserved null vertex ID. Ingest offsets every ID by
	// one so that 0 never names a real vertex.
	NoVertex uint32 = 0
)

// Vertex is the per-vertex record. The ID set is fixed for the whole run;
// only edges and flags mutate. A record is owned by exactly one rank and is
// only ever touched by that rank's goroutine.
type Vertex struct {
	Out mapset.Set[uint32] // successors along active edges
	In  mapset.Set[uint32] // predecessors along active edges

	CompID uint64 // final SCC label once frozen
	Active bool

	MyMarker uint32 // WCC representative this vertex is assigned to
	MyPivot  uint32 // own pivot rank (permuter image)
	WCCPivot uint32 // lowest pivot rank seen during WCC propagation

	MarkPred bool // reached by the backward flood
	MarkDesc bool // reached by the forward flood
}

func newVertex() *Vertex {
	return &Vertex{
		Out:    mapset.NewThreadUnsafeSet[uint32](),
		In:     mapset.NewThreadUnsafeSet[uint32](),
		CompID: NoComponent,
		Active: true,
	}
}

// shard is one rank's slice of the distributed state.
type shard struct {
	vertices map[uint32]*Vertex
	queue    pivotQueue        // pivot-propagation work queue, pumped pre-barrier
	tallies  map[uint32]uint64 // SCC size tally, keyed by component anchor
}

// VertexMap is the distributed vertex store: a mapping from vertex ID to
// record, sharded across the communicator's ranks. Remote mutation happens
// through typed visit messages dispatched on the owning rank.
type VertexMap struct {
	comm   *fabric.Comm
	shards []shard
}

// NewVertexMap creates an empty store sharded over n ranks.
func NewVertexMap(n int) *VertexMap {
	m := &VertexMap{}
	m.comm = fabric.New(n, m.dispatch)
	m.shards = make([]shard, m.comm.Size())
	for i := range m.shards {
		m.shards[i] = shard{
			vertices: make(map[uint32]*Vertex),
			tallies:  make(map[uint32]uint64),
		}
	}
	return m
}

// Comm returns the communicator the store is sharded over.
func (m *VertexMap) Comm() *fabric.Comm { return m.comm }

func (m *VertexMap) local(r *fabric.Rank) *shard {
	return &m.shards[r.ID()]
}

func (sh *shard) getOrCreate(id uint32) *Vertex {
	v := sh.vertices[id]
	if v == nil {
		v = newVertex()
		sh.vertices[id] = v
	}
	return v
}

// LocalForAll visits every record owned by this rank, synchronously and in no
// particular order.
func (m *VertexMap) LocalForAll(r *fabric.Rank, fn func(id uint32, v *Vertex)) {
	for id, v := range m.local(r).vertices {
		fn(id, v)
	}
}

// Size is a collective returning the global number of vertex records. All
// ranks must call it.
func (m *VertexMap) Size(r *fabric.Rank) uint64 {
	return r.SumUint64(uint64(len(m.local(r).vertices)))
}

// dispatch decodes a visit message and applies it to the addressed record.
// It runs on the owning rank with exclusive access to the shard.
func (m *VertexMap) dispatch(r *fabric.Rank, raw fabric.Message) {
	sh := m.local(r)
	switch msg := raw.(type) {
	case addOutEdge:
		sh.getOrCreate(msg.vtx).Out.Add(msg.nbr)
	case addInEdge:
		sh.getOrCreate(msg.vtx).In.Add(msg.nbr)
	case trimVisit:
		m.applyTrim(r, sh, msg)
	case pivotVisit:
		m.applyPivot(r, sh, msg)
	case markVisit:
		m.applyMark(r, sh, msg)
	case detachVisit:
		m.applyDetach(sh, msg)
	case shearProbe:
		m.applyShearProbe(r, sh, msg)
	case shearCut:
		m.applyShearCut(sh, msg)
	case tallyVisit:
		sh.tallies[msg.comp]++
	}
}
