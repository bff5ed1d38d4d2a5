// Package report renders simulation results as text.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// CellSeparator joins the stages that share a trace cell.
const CellSeparator = "/"

// WriteTrace writes the pipeline log as a table with one row per
// instruction and one column per cycle. Unoccupied cells are blank.
func WriteTrace(w io.Writer, log *pipeline.Log) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	header := []string{"Instruction"}
	for c := 0; c < log.Cycles(); c++ {
		header = append(header, fmt.Sprintf("C%d", c+1))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for id := 0; id < log.NumInstructions(); id++ {
		fields := []string{log.Label(id)}
		for _, cell := range log.Row(id) {
			fields = append(fields, strings.Join(cell, CellSeparator))
		}
		fmt.Fprintln(tw, strings.Join(fields, "\t"))
	}

	return tw.Flush()
}

// WriteRegisters writes the nonzero registers, or all of them when all is
// set.
func WriteRegisters(w io.Writer, regs [emu.NumRegs]uint32, all bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	for i, v := range regs {
		if v == 0 && !all {
			continue
		}
		fmt.Fprintf(tw, "x%d\t= %d\t(0x%08x)\n", i, int32(v), v)
	}

	return tw.Flush()
}

// StatsInput carries the values printed by WriteStats.
type StatsInput struct {
	Stats            pipeline.Statistics
	SimulatedSeconds float64
}

// WriteStats writes the performance summary.
func WriteStats(w io.Writer, in StatsInput) error {
	s := in.Stats
	_, err := fmt.Fprintf(w,
		"Total Instructions: %d\n"+
			"Total Cycles: %d\n"+
			"CPI: %.2f\n"+
			"Simulated Time: %.3f ns\n"+
			"\n"+
			"Pipeline Events:\n"+
			"  Stalls:         %d\n"+
			"  Flushes:        %d\n"+
			"  Forwards:       %d\n"+
			"  Taken branches: %d\n"+
			"  Memory faults:  %d\n",
		s.Instructions, s.Cycles, s.CPI(), in.SimulatedSeconds*1e9,
		s.Stalls, s.Flushes, s.Forwards, s.TakenBranches, s.MemFaults)
	return err
}

// WriteLatches writes the contents of the four pipeline registers.
func WriteLatches(w io.Writer, p *pipeline.Pipeline) error {
	ifid := p.GetIFID()
	idex := p.GetIDEX()
	exmem := p.GetEXMEM()
	memwb := p.GetMEMWB()

	_, err := fmt.Fprintf(w,
		"IF/ID  %s\n"+
			"ID/EX  %s\n"+
			"EX/MEM %s  alu=0x%08x\n"+
			"MEM/WB %s  result=0x%08x\n",
		latch(ifid.Valid, ifid.PC, ifid.Inst.String()),
		latch(idex.Valid, idex.PC, idex.Inst.String()),
		latch(exmem.Valid, exmem.PC, exmem.Inst.String()), exmem.ALUResult,
		latch(memwb.Valid, memwb.PC, memwb.Inst.String()), memwb.Result())
	return err
}

func latch(valid bool, pc uint32, inst string) string {
	if !valid {
		return "(bubble)"
	}
	return fmt.Sprintf("pc=0x%04x %s", pc, inst)
}
