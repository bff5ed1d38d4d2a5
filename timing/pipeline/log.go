package pipeline

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/rvsim/insts"
)

// Stage names recorded in the pipeline log.
const (
	StageIF  = "IF"
	StageID  = "ID"
	StageEX  = "EX"
	StageMEM = "MEM"
	StageWB  = "WB"

	// StallMark records a cycle in which an instruction waited in IF/ID.
	StallMark = "-"
)

// HookPosStage is the hook position at which every stage occupancy is
// published. The hook item is a StageEvent.
var HookPosStage = &sim.HookPos{Name: "PipelineStage"}

// StageEvent reports that an instruction occupied a stage in a cycle.
type StageEvent struct {
	Cycle int
	ID    int
	PC    uint32
	Stage string
	Inst  insts.Instruction
}

// Log records, per instruction and per cycle, the set of stage names the
// instruction occupied. It is a hook; attach it to a Pipeline to fill it.
type Log struct {
	cells  [][][]string
	labels []string
	cycles int
}

// NewLog allocates a log for numInsts instructions over cycles cycles.
// Missing labels are generated as "I<n>".
func NewLog(numInsts, cycles int, labels []string) *Log {
	l := &Log{
		cells:  make([][][]string, numInsts),
		labels: make([]string, numInsts),
		cycles: cycles,
	}

	for i := range l.cells {
		l.cells[i] = make([][]string, cycles)
		if i < len(labels) && labels[i] != "" {
			l.labels[i] = labels[i]
		} else {
			l.labels[i] = fmt.Sprintf("I%d", i+1)
		}
	}

	return l
}

// Func implements sim.Hook.
func (l *Log) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosStage {
		return
	}

	event, ok := ctx.Item.(StageEvent)
	if !ok {
		return
	}

	l.Record(event.ID, event.Cycle, event.Stage)
}

// Record adds stage to the cell of instruction id at cycle. Records
// outside the log are ignored. A stall mark never replaces a stage name,
// and a stage name replaces a lone stall mark.
func (l *Log) Record(id, cycle int, stage string) {
	if id < 0 || id >= len(l.cells) || cycle < 0 || cycle >= l.cycles {
		return
	}

	cell := l.cells[id][cycle]
	switch {
	case stage == StallMark:
		if len(cell) == 0 {
			cell = []string{StallMark}
		}
	case len(cell) == 1 && cell[0] == StallMark:
		cell = []string{stage}
	default:
		for _, s := range cell {
			if s == stage {
				return
			}
		}
		cell = append(cell, stage)
	}
	l.cells[id][cycle] = cell
}

// NumInstructions returns the number of rows.
func (l *Log) NumInstructions() int {
	return len(l.cells)
}

// Cycles returns the number of columns.
func (l *Log) Cycles() int {
	return l.cycles
}

// Label returns the row label of instruction id.
func (l *Log) Label(id int) string {
	if id < 0 || id >= len(l.labels) {
		return ""
	}
	return l.labels[id]
}

// SetLabel replaces the row label of instruction id.
func (l *Log) SetLabel(id int, label string) {
	if id >= 0 && id < len(l.labels) {
		l.labels[id] = label
	}
}

// Cell returns a copy of the stages recorded for instruction id at cycle.
func (l *Log) Cell(id, cycle int) []string {
	if id < 0 || id >= len(l.cells) || cycle < 0 || cycle >= l.cycles {
		return nil
	}
	return append([]string(nil), l.cells[id][cycle]...)
}

// Row returns copies of all cells of instruction id.
func (l *Log) Row(id int) [][]string {
	if id < 0 || id >= len(l.cells) {
		return nil
	}

	row := make([][]string, l.cycles)
	for c := range row {
		row[c] = l.Cell(id, c)
	}
	return row
}

// Occurrences returns the cycles in which instruction id occupied stage,
// in increasing order.
func (l *Log) Occurrences(id int, stage string) []int {
	var cycles []int
	for c := 0; c < l.cycles; c++ {
		for _, s := range l.Cell(id, c) {
			if s == stage {
				cycles = append(cycles, c)
			}
		}
	}
	return cycles
}
