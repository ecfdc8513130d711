package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/slowlang/bf/src/compiler/ir"
)

type (
	// Profile receives execution events from Run. Instr is called once per
	// executed node, a loop-shaped node once per entry with symbol '['
	// (n is always 1; the
	// parameter exists so a closed-form caller could report a batch, though
	// none currently does). Loop is called once per innermost loop-shaped
	// node, after it finishes running, with its total iteration count.
	Profile interface {
		Instr(id ir.ID, sym byte, n int64)
		Loop(id ir.ID, simple bool, iterations int64)
	}

	// NoopProfile discards every event; it is the zero-cost default.
	NoopProfile struct{}

	// RecordingProfile accumulates counts for a post-run report.
	RecordingProfile struct {
		instrCount map[ir.ID]int64
		instrSym   map[ir.ID]byte
		loopCounts map[ir.ID]int64
		loopSimple map[ir.ID]bool
	}
)

func (NoopProfile) Instr(ir.ID, byte, int64) {}
func (NoopProfile) Loop(ir.ID, bool, int64)  {}

// NewRecordingProfile returns a Profile ready to accumulate a run's events.
func NewRecordingProfile() *RecordingProfile {
	return &RecordingProfile{
		instrCount: map[ir.ID]int64{},
		instrSym:   map[ir.ID]byte{},
		loopCounts: map[ir.ID]int64{},
		loopSimple: map[ir.ID]bool{},
	}
}

func (p *RecordingProfile) Instr(id ir.ID, sym byte, n int64) {
	p.instrCount[id] += n
	p.instrSym[id] = sym
}

func (p *RecordingProfile) Loop(id ir.ID, simple bool, iterations int64) {
	p.loopCounts[id] += iterations
	p.loopSimple[id] = simple
}

type loopLine struct {
	id    ir.ID
	count int64
}

// Report renders the accumulated counts in the reference implementation's
// profiler format: one "<symbol> <count>" line per instruction id with a
// nonzero count, in id order, under an "Instruction execution counts:"
// header, then innermost loops split into simple and non-simple sections,
// each sorted by executed count descending.
func (p *RecordingProfile) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Instruction execution counts:\n")

	ids := make([]ir.ID, 0, len(p.instrCount))
	for id := range p.instrCount {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if c := p.instrCount[id]; c > 0 {
			fmt.Fprintf(&b, "%c %d\n", p.instrSym[id], c)
		}
	}

	var simpleLoops, generalLoops []loopLine

	for id, count := range p.loopCounts {
		if count == 0 {
			continue
		}

		line := loopLine{id: id, count: count}

		if p.loopSimple[id] {
			simpleLoops = append(simpleLoops, line)
		} else {
			generalLoops = append(generalLoops, line)
		}
	}

	sortLoopLines(simpleLoops)
	sortLoopLines(generalLoops)

	fmt.Fprintf(&b, "\nSimple innermost loops:\n")
	for _, l := range simpleLoops {
		fmt.Fprintf(&b, "Loop at instruction id %d executed %d times\n", l.id, l.count)
	}

	fmt.Fprintf(&b, "\nNon-simple innermost loops:\n")
	for _, l := range generalLoops {
		fmt.Fprintf(&b, "Loop at instruction id %d executed %d times\n", l.id, l.count)
	}

	return b.String()
}

func sortLoopLines(ls []loopLine) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].count != ls[j].count {
			return ls[i].count > ls[j].count
		}

		return ls[i].id < ls[j].id
	})
}
