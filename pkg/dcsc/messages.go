package dcsc

// Visit messages. Each concrete type is its own tag; VertexMap.dispatch
// type-switches on it and applies the mutation to the addressed record on the
// owning rank.

// addOutEdge records nbr as a successor of vtx, creating the record if the
// vertex has not been seen before.
type addOutEdge struct {
	vtx, nbr uint32
}

func (m addOutEdge) Key() uint32 { return m.vtx }

// addInEdge records nbr as a predecessor of vtx.
type addInEdge struct {
	vtx, nbr uint32
}

func (m addInEdge) Key() uint32 { return m.vtx }

// trimVisit tells vtx that sender was trimmed. forward means the sender had
// no predecessors and vtx should drop it from In; otherwise from Out.
type trimVisit struct {
	vtx, sender uint32
	forward     bool
}

func (m trimVisit) Key() uint32 { return m.vtx }

// pivotVisit carries a candidate WCC pivot rank to vtx.
type pivotVisit struct {
	vtx, pivot uint32
}

func (m pivotVisit) Key() uint32 { return m.vtx }

// markVisit is the reachability flood from a WCC representative. forward
// floods descendants (sets MarkDesc), otherwise predecessors (MarkPred).
type markVisit struct {
	vtx, pivot, marker uint32
	forward            bool
}

func (m markVisit) Key() uint32 { return m.vtx }

// detachVisit removes a frozen sender from vtx's adjacency. fromIn erases the
// sender from In (the sender held vtx in its Out), otherwise from Out.
type detachVisit struct {
	vtx, sender uint32
	fromIn      bool
}

func (m detachVisit) Key() uint32 { return m.vtx }

// shearProbe asks vtx to compare marking classes with sender; on mismatch the
// edge sender→vtx is removed symmetrically.
type shearProbe struct {
	vtx, sender uint32
	pred, desc  bool
}

func (m shearProbe) Key() uint32 { return m.vtx }

// shearCut erases nbr from vtx's Out; the In side was already erased by the
// probe handler.
type shearCut struct {
	vtx, nbr uint32
}

func (m shearCut) Key() uint32 { return m.vtx }

// tallyVisit bumps the size count of one component on the rank owning the
// component's anchor ID.
type tallyVisit struct {
	comp uint32
}

func (m tallyVisit) Key() uint32 { return m.comp }
