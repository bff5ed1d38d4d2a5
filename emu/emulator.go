package emu

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/rvsim/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true once the PC has left the program or a fault occurred.
	Halted bool

	// Err is set if a memory fault halted execution under PolicyFault.
	Err error
}

// Emulator executes RV32 instructions functionally, one instruction per
// step and without timing. It shares decode, control and execution units
// with the timing pipeline and serves as its reference model.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	control *insts.ControlUnit

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	program []insts.Instruction
	pc      uint32

	logger *slog.Logger
	policy MemoryPolicy

	// Execution state
	instructionCount uint64
	memFaults        uint64
	err              error
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) EmulatorOption {
	return func(e *Emulator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMemoryPolicy selects how out-of-range memory accesses are treated.
func WithMemoryPolicy(policy MemoryPolicy) EmulatorOption {
	return func(e *Emulator) {
		e.policy = policy
	}
}

// WithMemory replaces the data memory, for example with a preloaded one.
func WithMemory(memory *Memory) EmulatorOption {
	return func(e *Emulator) {
		if memory != nil {
			e.memory = memory
		}
	}
}

// WithInitialRegs presets the register file. x0 stays zero.
func WithInitialRegs(regs [NumRegs]uint32) EmulatorOption {
	return func(e *Emulator) {
		for i, v := range regs {
			e.regFile.WriteReg(uint8(i), v)
		}
	}
}

// NewEmulator creates an emulator for the given program words. The
// program occupies the instruction store starting at address 0.
func NewEmulator(program []uint32, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		control: insts.NewControlUnit(),
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU()
	e.lsu = NewLoadStoreUnit(e.memory)
	e.branchUnit = NewBranchUnit()
	e.LoadProgram(program)

	return e
}

// LoadProgram decodes program into the instruction store and resets the
// PC to 0. Register and memory state are preserved.
func (e *Emulator) LoadProgram(program []uint32) {
	e.program = make([]insts.Instruction, len(program))
	for i, word := range program {
		inst := e.decoder.Decode(word)
		if !inst.IsNop() {
			inst.ID = i
		}
		e.program[i] = inst
	}
	e.pc = 0
	e.err = nil
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the address of the next instruction.
func (e *Emulator) PC() uint32 {
	return e.pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// MemFaults returns the number of out-of-range memory accesses.
func (e *Emulator) MemFaults() uint64 {
	return e.memFaults
}

// Err returns the fault that halted execution, if any.
func (e *Emulator) Err() error {
	return e.err
}

// Halted reports whether execution can make no further progress.
func (e *Emulator) Halted() bool {
	return e.err != nil || e.fetchIndex() < 0
}

func (e *Emulator) fetchIndex() int {
	if e.pc%4 != 0 || uint64(e.pc/4) >= uint64(len(e.program)) {
		return -1
	}
	return int(e.pc / 4)
}

// Step executes the instruction at the current PC.
func (e *Emulator) Step() StepResult {
	if e.err != nil {
		return StepResult{Halted: true, Err: e.err}
	}

	idx := e.fetchIndex()
	if idx < 0 {
		return StepResult{Halted: true}
	}

	e.execute(e.program[idx])
	e.instructionCount++

	if e.err != nil {
		return StepResult{Halted: true, Err: e.err}
	}
	return StepResult{Halted: e.Halted()}
}

// Run steps until the program halts or maxSteps instructions have
// executed. A maxSteps of 0 means no limit. It returns the number of
// instructions executed by this call.
func (e *Emulator) Run(maxSteps uint64) (uint64, error) {
	var steps uint64
	for maxSteps == 0 || steps < maxSteps {
		if e.Halted() {
			break
		}
		result := e.Step()
		steps++
		if result.Err != nil {
			return steps, result.Err
		}
	}
	return steps, e.err
}

func (e *Emulator) execute(inst insts.Instruction) {
	ctrl := e.control.Decode(inst)
	rs1 := e.regFile.ReadReg(inst.Rs1())
	rs2 := e.regFile.ReadReg(inst.Rs2())
	imm := uint32(inst.Imm())
	next := e.pc + 4

	switch inst.Format {
	case insts.FormatNOP:
	case insts.FormatUnknown:
		e.logger.Debug("unknown instruction", "pc", e.pc, "word", fmt.Sprintf("0x%08x", inst.Word))
	case insts.FormatR:
		e.regFile.WriteReg(inst.Rd(), e.alu.Execute(ctrl.ALUOp, rs1, rs2))
	case insts.FormatI:
		switch inst.Opcode {
		case insts.OpcodeOpImm:
			e.regFile.WriteReg(inst.Rd(), e.alu.Execute(ctrl.ALUOp, rs1, imm))
		case insts.OpcodeLoad:
			value, err := e.lsu.Load(inst.Funct3(), e.alu.Execute(ctrl.ALUOp, rs1, imm))
			if err != nil {
				e.memoryFault(err)
				value = 0
			}
			e.regFile.WriteReg(inst.Rd(), value)
		case insts.OpcodeJALR:
			next = e.branchUnit.JALRTarget(rs1, inst.Imm())
			e.regFile.WriteReg(inst.Rd(), e.branchUnit.LinkAddress(e.pc))
		}
	case insts.FormatS:
		err := e.lsu.Store(inst.Funct3(), e.alu.Execute(ctrl.ALUOp, rs1, imm), rs2)
		if err != nil {
			e.memoryFault(err)
		}
	case insts.FormatB:
		if e.branchUnit.Taken(inst.Funct3(), rs1, rs2) {
			next = e.branchUnit.Target(e.pc, inst.Imm())
		}
	case insts.FormatU:
		value := imm
		if inst.Opcode == insts.OpcodeAUIPC {
			value = e.pc + imm
		}
		e.regFile.WriteReg(inst.Rd(), value)
	case insts.FormatJ:
		next = e.branchUnit.Target(e.pc, inst.Imm())
		e.regFile.WriteReg(inst.Rd(), e.branchUnit.LinkAddress(e.pc))
	}

	if e.err == nil {
		e.pc = next
	}
}

func (e *Emulator) memoryFault(err error) {
	e.memFaults++
	e.logger.Warn("out-of-range memory access", "pc", e.pc, "err", err)

	if e.policy == PolicyFault {
		e.err = fmt.Errorf("pc 0x%x: %w", e.pc, err)
	}
}
