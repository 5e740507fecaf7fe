package dcsc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/prestonpiercey-tamu/DCSC-YGM/pkg/fabric"
)

const maxLineBytes = 1 << 20

// CreateVertexMap ingests a whitespace-separated edge list into m. The open
// is collective: every rank reads the file and parses its own residue class
// of lines, so no single rank has to stream the whole input through itself.
// Files ending in .gz are decompressed on the fly.
//
// Lines starting with '#' and blank lines are skipped; lines that do not
// yield two decimal integers are silently dropped. Vertex IDs are stored with
// a +1 offset to keep 0 free as a sentinel, and duplicate edges collapse via
// the set semantics of the adjacency.
//
// Returns the global edge count (duplicates included, as observed on input).
func CreateVertexMap(ctx context.Context, r *fabric.Rank, m *VertexMap, path string) (uint64, error) {
	l := ctxzap.Extract(ctx)
	if r.ID() == 0 {
		l.Info("reading edge list", zap.String("path", path))
	}

	reader, cleanup, err := openEdgeList(path)
	ok := uint64(1)
	if err != nil {
		ok = 0
	}
	// Every rank must learn about a failed open, or the others would wait at
	// the ingest barrier forever.
	if good := r.SumUint64(ok); good < uint64(r.Comm().Size()) {
		if cleanup != nil {
			cleanup()
		}
		if err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("open edge list %s: failed on a peer rank", path)
	}
	defer cleanup()

	nranks := uint64(r.Comm().Size())
	mine := uint64(r.ID())

	var edges uint64
	var lineNo uint64
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		idx := lineNo
		lineNo++
		if idx%nranks != mine {
			continue
		}
		src, dst, parsed := parseEdge(scanner.Text())
		if !parsed {
			continue
		}
		src++
		dst++
		r.Send(addOutEdge{vtx: src, nbr: dst})
		r.Send(addInEdge{vtx: dst, nbr: src})
		edges++
	}
	scanErr := scanner.Err()
	ok = 1
	if scanErr != nil {
		ok = 0
	}
	if good := r.SumUint64(ok); good < uint64(r.Comm().Size()) {
		if scanErr != nil {
			return 0, fmt.Errorf("read edge list %s: %w", path, scanErr)
		}
		return 0, fmt.Errorf("read edge list %s: failed on a peer rank", path)
	}

	r.Barrier()
	total := r.SumUint64(edges)
	return total, nil
}

func openEdgeList(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open edge list %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, func() { f.Close() }, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open edge list %s: %w", path, err)
	}
	return gz, func() {
		gz.Close()
		f.Close()
	}, nil
}

// parseEdge extracts (src, dst) from one line. The bool result is false for
// comments, blanks, and anything that does not parse as two 32-bit decimals.
func parseEdge(line string) (uint32, uint32, bool) {
	s := strings.TrimSpace(line)
	if s == "" || s[0] == '#' {
		return 0, 0, false
	}
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0, 0, false
	}
	src, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	dst, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint32(src), uint32(dst), true
}
