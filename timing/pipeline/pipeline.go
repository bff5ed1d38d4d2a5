package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of cycles the front end was held by a hazard.
	Stalls uint64
	// Flushes is the number of squashed sequential fetches (redirects).
	Flushes uint64
	// Forwards is the number of operands supplied by a bypass.
	Forwards uint64
	// TakenBranches is the number of taken branches and jumps.
	TakenBranches uint64
	// MemFaults is the number of out-of-range memory accesses.
	MemFaults uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithForwarding enables operand bypassing. Without it every RAW hazard
// stalls.
func WithForwarding(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.forwarding = enabled
	}
}

// WithLabels sets the trace row labels, one per program word.
func WithLabels(labels []string) PipelineOption {
	return func(p *Pipeline) {
		p.labels = labels
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithInitialRegs presets the register file. x0 stays zero.
func WithInitialRegs(regs [emu.NumRegs]uint32) PipelineOption {
	return func(p *Pipeline) {
		for i, v := range regs {
			p.regFile.WriteReg(uint8(i), v)
		}
	}
}

// WithMemory replaces the data memory, for example with a preloaded one.
func WithMemory(memory *emu.Memory) PipelineOption {
	return func(p *Pipeline) {
		if memory != nil {
			p.memory = memory
		}
	}
}

// WithMemoryPolicy selects how out-of-range memory accesses are treated.
func WithMemoryPolicy(policy emu.MemoryPolicy) PipelineOption {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithHook attaches an additional hook for stage events.
func WithHook(hook sim.Hook) PipelineOption {
	return func(p *Pipeline) {
		p.hooks = append(p.hooks, hook)
	}
}

// Pipeline is a 5-stage in-order RV32 pipeline.
type Pipeline struct {
	*sim.HookableBase

	// Pipeline registers. Stage logic reads cur and writes next.
	cur  latches
	next latches

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit *HazardUnit

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory
	program []insts.Instruction

	// Configuration
	forwarding  bool
	policy      emu.MemoryPolicy
	labels      []string
	totalCycles int
	hooks       []sim.Hook
	logger      *slog.Logger

	// Program counter
	pc uint32

	log   *Log
	cycle int
	stats Statistics

	// Execution state
	halted bool
	err    error
}

// NewPipeline creates a pipeline for the given program words that is meant
// to run for totalCycles cycles. Instruction ids are program indices; NOP
// words carry none.
func NewPipeline(program []uint32, totalCycles int, opts ...PipelineOption) *Pipeline {
	if totalCycles < 0 {
		totalCycles = 0
	}

	p := &Pipeline{
		HookableBase: sim.NewHookableBase(),
		regFile:      &emu.RegFile{},
		memory:       emu.NewMemory(),
		totalCycles:  totalCycles,
		logger:       slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(p)
	}

	decoder := insts.NewDecoder()
	p.program = make([]insts.Instruction, len(program))
	labels := make([]string, len(program))
	for i, word := range program {
		inst := decoder.Decode(word)
		if !inst.IsNop() {
			inst.ID = i
		}
		p.program[i] = inst

		labels[i] = fmt.Sprintf("I%d %s", i+1, inst)
		if i < len(p.labels) && p.labels[i] != "" {
			labels[i] = p.labels[i]
		}
	}

	p.hazardUnit = NewHazardUnit(p.forwarding)
	p.fetchStage = NewFetchStage(p.program)
	p.decodeStage = NewDecodeStage(p.regFile, p.hazardUnit)
	p.executeStage = NewExecuteStage(p.hazardUnit)
	p.memoryStage = NewMemoryStage(p.memory, p.hazardUnit)
	p.writebackStage = NewWritebackStage(p.regFile)

	p.cur = emptyLatches()
	p.next = emptyLatches()

	p.log = NewLog(len(program), totalCycles, labels)
	p.AcceptHook(p.log)
	for _, h := range p.hooks {
		p.AcceptHook(h)
	}

	return p
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
}

// GetIFID returns a copy of the IF/ID pipeline register.
func (p *Pipeline) GetIFID() IFIDRegister {
	return p.cur.ifid
}

// GetIDEX returns a copy of the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() IDEXRegister {
	return p.cur.idex
}

// GetEXMEM returns a copy of the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() EXMEMRegister {
	return p.cur.exmem
}

// GetMEMWB returns a copy of the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() MEMWBRegister {
	return p.cur.memwb
}

// Registers returns a copy of the register file.
func (p *Pipeline) Registers() [emu.NumRegs]uint32 {
	return p.regFile.Snapshot()
}

// Reg returns the value of register i.
func (p *Pipeline) Reg(i uint8) uint32 {
	return p.regFile.ReadReg(i)
}

// Memory returns a copy of the data memory.
func (p *Pipeline) Memory() []byte {
	return p.memory.Bytes()
}

// Program returns the decoded instruction store.
func (p *Pipeline) Program() []insts.Instruction {
	return append([]insts.Instruction(nil), p.program...)
}

// Forwarding reports whether operand bypassing is enabled.
func (p *Pipeline) Forwarding() bool {
	return p.forwarding
}

// Log returns the pipeline log.
func (p *Pipeline) Log() *Log {
	return p.log
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Cycle returns the number of cycles simulated so far.
func (p *Pipeline) Cycle() int {
	return p.cycle
}

// TotalCycles returns the number of cycles the pipeline was built for.
func (p *Pipeline) TotalCycles() int {
	return p.totalCycles
}

// Done reports whether all cycles have run or the pipeline halted.
func (p *Pipeline) Done() bool {
	return p.halted || p.cycle >= p.totalCycles
}

// Halted returns true if the pipeline halted on a memory fault.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Err returns the fault that halted the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// Run ticks until all cycles have run or the pipeline halts.
func (p *Pipeline) Run() error {
	for !p.Done() {
		p.Tick()
	}
	return p.err
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles int) bool {
	for i := 0; i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// Tick executes one pipeline cycle.
//
// Phase 0 evaluates the back half of the pipeline (WB, MEM, EX) from the
// current registers. Writeback happens first so that decode, later in the
// same cycle, reads the committed value. Phase 1 evaluates decode then
// fetch: decode performs hazard detection and resolves branches and
// jumps, and a redirect suppresses the sequential fetch. At the end of the
// cycle all next registers become current at once; the PC advances by 4
// only if nothing redirected or stalled it.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.stats.Cycles++
	p.next = emptyLatches()

	// Phase 0
	p.doWriteback()
	if !p.doMemory() {
		p.cycle++
		return
	}
	p.doExecute()

	// Phase 1
	stalls := p.doDecode()
	fetched := p.doFetch(stalls)

	// Commit
	p.cur = p.next
	if fetched && !stalls.StallIF && !stalls.FlushIF {
		p.pc += 4
	}
	p.cycle++
}

func (p *Pipeline) doWriteback() {
	memwb := &p.cur.memwb
	if !memwb.Valid {
		return
	}

	p.record(memwb.Inst, memwb.PC, StageWB)
	p.writebackStage.Writeback(memwb)

	if memwb.Inst.HasID() {
		p.stats.Instructions++
	}
}

// doMemory returns false if a fault halted the pipeline.
func (p *Pipeline) doMemory() bool {
	exmem := &p.cur.exmem
	result := p.memoryStage.Access(exmem, &p.cur.memwb)
	p.next.memwb = result.MEMWB

	if !exmem.Valid {
		return true
	}

	p.record(exmem.Inst, exmem.PC, StageMEM)
	if result.Forwarded {
		p.stats.Forwards++
	}

	if result.Err != nil {
		p.stats.MemFaults++
		p.logger.Warn("out-of-range memory access",
			"cycle", p.cycle, "pc", exmem.PC, "addr", exmem.ALUResult, "err", result.Err)

		if p.policy == emu.PolicyFault {
			p.err = fmt.Errorf("cycle %d, pc 0x%x: %w", p.cycle, exmem.PC, result.Err)
			p.halted = true
			return false
		}
	}

	return true
}

func (p *Pipeline) doExecute() {
	idex := &p.cur.idex
	result := p.executeStage.Execute(idex, &p.cur.exmem, &p.cur.memwb)
	p.next.exmem = result.EXMEM

	if idex.Valid {
		p.record(idex.Inst, idex.PC, StageEX)
		p.stats.Forwards += uint64(result.Forwards)
	}
}

func (p *Pipeline) doDecode() StallResult {
	ifid := &p.cur.ifid
	if !ifid.Valid {
		return p.hazardUnit.ComputeStalls(false, false)
	}

	inst := ifid.Inst
	if stall, reason := p.hazardUnit.DetectStall(&p.cur.idex, &p.cur.exmem, inst); stall {
		p.record(inst, ifid.PC, StallMark)
		p.stats.Stalls++
		p.logger.Debug("stall", "cycle", p.cycle, "pc", ifid.PC, "reason", reason)
		return p.hazardUnit.ComputeStalls(true, false)
	}

	result := p.decodeStage.Decode(ifid, &p.cur.exmem, &p.cur.memwb)
	p.next.idex = result.IDEX
	p.record(inst, ifid.PC, StageID)
	p.stats.Forwards += uint64(result.Forwards)

	if inst.Format == insts.FormatUnknown {
		p.logger.Debug("unknown instruction",
			"cycle", p.cycle, "pc", ifid.PC, "word", fmt.Sprintf("0x%08x", inst.Word))
	}

	if result.Redirect {
		p.pc = result.Target
		p.stats.Flushes++
		if result.Taken {
			p.stats.TakenBranches++
		}
		p.logger.Debug("redirect",
			"cycle", p.cycle, "pc", ifid.PC, "target", result.Target, "taken", result.Taken)
	}

	return p.hazardUnit.ComputeStalls(false, result.Redirect)
}

// doFetch returns true if an instruction was fetched.
func (p *Pipeline) doFetch(stalls StallResult) bool {
	if stalls.StallIF {
		p.next.ifid = p.cur.ifid
		return false
	}
	if stalls.FlushIF {
		return false
	}

	inst, ok := p.fetchStage.Fetch(p.pc)
	if !ok {
		return false
	}

	p.next.ifid = IFIDRegister{Valid: true, PC: p.pc, Inst: inst}
	p.record(inst, p.pc, StageIF)

	return true
}

func (p *Pipeline) record(inst insts.Instruction, pc uint32, stage string) {
	if !inst.HasID() {
		return
	}

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    HookPosStage,
		Item: StageEvent{
			Cycle: p.cycle,
			ID:    inst.ID,
			PC:    pc,
			Stage: stage,
			Inst:  inst,
		},
	})
}
