package dcsc

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/fabric"
)

// Options configures a run.
type Options struct {
	// Ranks is the number of executors to shard the graph over. Defaults to
	// GOMAXPROCS.
	Ranks int
	// Stdout receives the rank-0 report lines. Defaults to os.Stdout.
	Stdout io.Writer
}

// Result is the aggregate outcome of a run.
type Result struct {
	Nodes      uint64
	Edges      uint64
	Rounds     uint64
	SCCCount   uint64
	LargestSCC uint64
}

// Run ingests the edge list at path and drives DCSC rounds until every vertex
// holds a final component label. The logger attached to ctx (via ctxzap) is
// used for progress and telemetry; the report lines go to opts.Stdout from
// rank 0 only.
func Run(ctx context.Context, path string, opts Options) (*Result, error) {
	if opts.Ranks <= 0 {
		opts.Ranks = runtime.GOMAXPROCS(0)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	m := NewVertexMap(opts.Ranks)
	res := &Result{}
	err := m.Comm().Run(ctx, func(ctx context.Context, r *fabric.Rank) error {
		return runBody(ctx, r, m, path, opts, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func runBody(ctx context.Context, r *fabric.Rank, m *VertexMap, path string, opts Options, res *Result) error {
	l := ctxzap.Extract(ctx)
	rank0 := r.ID() == 0

	edges, err := CreateVertexMap(ctx, r, m, path)
	if err != nil {
		return err
	}
	nodes := m.Size(r)
	if rank0 {
		fmt.Fprintf(opts.Stdout, "Node Count: %d\n", nodes)
		fmt.Fprintf(opts.Stdout, "Edge Count: %d\n", edges)
	}

	// The permuter needs the global ID range.
	localMin := uint32(math.MaxUint32)
	var localMax uint32
	m.LocalForAll(r, func(id uint32, _ *Vertex) {
		if id < localMin {
			localMin = id
		}
		if id > localMax {
			localMax = id
		}
	})
	minVtx := r.MinUint32(localMin)
	maxVtx := r.MaxUint32(localMax)
	r.Barrier()

	if rank0 {
		fmt.Fprintln(opts.Stdout, "Starting DCSC")
		l.Info("starting DCSC",
			zap.Uint64("nodes", nodes),
			zap.Uint64("edges", edges),
			zap.Int("ranks", r.Comm().Size()),
			zap.Uint32("min_vtx", minVtx),
			zap.Uint32("max_vtx", maxVtx),
		)
	}

	var iter uint64
	for {
		TrimTrivial(r, m)
		InitWCCPivots(r, m, iter, minVtx, maxVtx)
		PropagateMarks(r, m)
		remaining := FreezeAndShear(r, m)

		if rank0 {
			fmt.Fprintf(opts.Stdout, "Iteration %d left %d unterminated.\n", iter, remaining)
			l.Debug("round complete",
				zap.Uint64("iteration", iter),
				zap.Uint64("unterminated", remaining),
				zap.Uint64("rss_bytes", processRSS()),
			)
		}
		iter++
		if remaining == 0 {
			break
		}
	}
	r.Barrier()

	sccs := CountSCCs(r, m)
	largest := CountLargestSCC(r, m)
	if rank0 {
		fmt.Fprintf(opts.Stdout, "Converged to final SCCs. Enumerated %d\n", sccs)
		fmt.Fprintf(opts.Stdout, "Largest SCC contains %d\n", largest)
		res.Nodes = nodes
		res.Edges = edges
		res.Rounds = iter
		res.SCCCount = sccs
		res.LargestSCC = largest
	}
	return nil
}

// processRSS samples this process's resident set for round telemetry. Best
// effort: 0 when the platform query fails.
func processRSS() uint64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	mi, err := p.MemoryInfo()
	if err != nil {
		return 0
	}
	return mi.RSS
}
