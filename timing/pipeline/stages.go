package pipeline

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// FetchStage handles instruction fetch from the instruction store.
type FetchStage struct {
	program []insts.Instruction
}

// NewFetchStage creates a new fetch stage over a decoded program.
func NewFetchStage(program []insts.Instruction) *FetchStage {
	return &FetchStage{program: program}
}

// Fetch returns the instruction at the given PC. It reports false when the
// PC is misaligned or outside the program.
func (s *FetchStage) Fetch(pc uint32) (insts.Instruction, bool) {
	if pc%4 != 0 || uint64(pc/4) >= uint64(len(s.program)) {
		return insts.Nop(), false
	}
	return s.program[pc/4], true
}

// DecodeStage handles control derivation, register read and decode-time
// branch resolution.
type DecodeStage struct {
	regFile    *emu.RegFile
	control    *insts.ControlUnit
	branchUnit *emu.BranchUnit
	hazardUnit *HazardUnit
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile, hazardUnit *HazardUnit) *DecodeStage {
	return &DecodeStage{
		regFile:    regFile,
		control:    insts.NewControlUnit(),
		branchUnit: emu.NewBranchUnit(),
		hazardUnit: hazardUnit,
	}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	// IDEX is the next ID/EX register.
	IDEX IDEXRegister

	// Redirect is set for every branch and jump; Target is the new PC.
	Redirect bool
	Target   uint32

	// Taken is set for taken branches and all jumps.
	Taken bool

	// Forwards counts operands bypassed for branch resolution.
	Forwards int
}

// Decode reads the operands of the instruction in IF/ID and resolves
// branches and jumps. Branch operands are bypassed from the current EX/MEM
// and MEM/WB registers when forwarding is enabled; the caller must have
// ruled out unsatisfiable dependencies with the hazard unit.
func (s *DecodeStage) Decode(
	ifid *IFIDRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) DecodeResult {
	inst := ifid.Inst
	ctrl := s.control.Decode(inst)

	result := DecodeResult{
		IDEX: IDEXRegister{
			Valid:    true,
			PC:       ifid.PC,
			Inst:     inst,
			Ctrl:     ctrl,
			Rs1Value: s.regFile.ReadReg(inst.Rs1()),
			Rs2Value: s.regFile.ReadReg(inst.Rs2()),
			Rd:       inst.Rd(),
			Rs1:      inst.Rs1(),
			Rs2:      inst.Rs2(),
		},
	}

	switch {
	case inst.Format == insts.FormatJ:
		result.Redirect = true
		result.Taken = true
		result.Target = s.branchUnit.Target(ifid.PC, inst.Imm())

	case resolvesInDecode(inst):
		rs1, rs2 := result.IDEX.Rs1Value, result.IDEX.Rs2Value
		if s.hazardUnit.Forwarding() {
			src1 := s.hazardUnit.detectForwardForReg(inst.Rs1(), exmem, memwb)
			src2 := s.hazardUnit.detectForwardForReg(inst.Rs2(), exmem, memwb)
			rs1 = s.hazardUnit.GetForwardedValue(src1, rs1, exmem, memwb)
			rs2 = s.hazardUnit.GetForwardedValue(src2, rs2, exmem, memwb)
			result.Forwards = ForwardingResult{ForwardRs1: src1, ForwardRs2: src2}.Count()
		}

		result.Redirect = true
		if inst.Format == insts.FormatB {
			result.Taken = s.branchUnit.Taken(inst.Funct3(), rs1, rs2)
			result.Target = ifid.PC + 4
			if result.Taken {
				result.Target = s.branchUnit.Target(ifid.PC, inst.Imm())
			}
		} else {
			result.Taken = true
			result.Target = s.branchUnit.JALRTarget(rs1, inst.Imm())
		}
	}

	return result
}

// ExecuteStage handles ALU operations and address calculation.
type ExecuteStage struct {
	alu        *emu.ALU
	branchUnit *emu.BranchUnit
	hazardUnit *HazardUnit
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(hazardUnit *HazardUnit) *ExecuteStage {
	return &ExecuteStage{
		alu:        emu.NewALU(),
		branchUnit: emu.NewBranchUnit(),
		hazardUnit: hazardUnit,
	}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	// EXMEM is the next EX/MEM register.
	EXMEM EXMEMRegister

	// Forwards counts bypassed operands.
	Forwards int
}

// Execute consumes the current ID/EX register. Operands are bypassed from
// the current EX/MEM and MEM/WB registers when forwarding is enabled.
func (s *ExecuteStage) Execute(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ExecuteResult {
	if !idex.Valid {
		return ExecuteResult{EXMEM: EXMEMRegister{Inst: insts.Nop()}}
	}

	forwarding := s.hazardUnit.DetectForwarding(idex, exmem, memwb)
	rs1 := s.hazardUnit.GetForwardedValue(forwarding.ForwardRs1, idex.Rs1Value, exmem, memwb)
	rs2 := s.hazardUnit.GetForwardedValue(forwarding.ForwardRs2, idex.Rs2Value, exmem, memwb)

	inst := idex.Inst
	imm := uint32(inst.Imm())

	var result uint32
	switch inst.Format {
	case insts.FormatR:
		result = s.alu.Execute(idex.Ctrl.ALUOp, rs1, rs2)
	case insts.FormatI:
		if inst.Opcode == insts.OpcodeJALR {
			result = s.branchUnit.LinkAddress(idex.PC)
		} else {
			result = s.alu.Execute(idex.Ctrl.ALUOp, rs1, imm)
		}
	case insts.FormatS:
		result = s.alu.Execute(idex.Ctrl.ALUOp, rs1, imm)
	case insts.FormatB:
		result = s.alu.Execute(idex.Ctrl.ALUOp, rs1, rs2)
	case insts.FormatU:
		result = imm
		if inst.Opcode == insts.OpcodeAUIPC {
			result = idex.PC + imm
		}
	case insts.FormatJ:
		result = s.branchUnit.LinkAddress(idex.PC)
	}

	return ExecuteResult{
		EXMEM: EXMEMRegister{
			Valid:      true,
			PC:         idex.PC,
			Inst:       inst,
			Ctrl:       idex.Ctrl,
			ALUResult:  result,
			StoreValue: rs2,
			Rd:         idex.Rd,
			Rs2:        idex.Rs2,
		},
		Forwards: forwarding.Count(),
	}
}

// MemoryStage handles memory load/store operations.
type MemoryStage struct {
	lsu        *emu.LoadStoreUnit
	hazardUnit *HazardUnit
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory, hazardUnit *HazardUnit) *MemoryStage {
	return &MemoryStage{
		lsu:        emu.NewLoadStoreUnit(memory),
		hazardUnit: hazardUnit,
	}
}

// MemoryResult holds the result of the memory stage.
type MemoryResult struct {
	// MEMWB is the next MEM/WB register.
	MEMWB MEMWBRegister

	// Forwarded is set when the store data was bypassed from MEM/WB.
	Forwarded bool

	// Err wraps emu.ErrOutOfRange for out-of-range accesses.
	Err error
}

// Access performs the memory read or write of the current EX/MEM
// register. Store data is bypassed from the current MEM/WB register when
// forwarding is enabled.
func (s *MemoryStage) Access(exmem *EXMEMRegister, memwb *MEMWBRegister) MemoryResult {
	result := MemoryResult{MEMWB: MEMWBRegister{Inst: insts.Nop()}}

	if !exmem.Valid {
		return result
	}

	result.MEMWB = MEMWBRegister{
		Valid:     true,
		PC:        exmem.PC,
		Inst:      exmem.Inst,
		Ctrl:      exmem.Ctrl,
		ALUResult: exmem.ALUResult,
		Rd:        exmem.Rd,
	}

	switch {
	case exmem.Ctrl.MemRead:
		data, err := s.lsu.Load(exmem.Inst.Funct3(), exmem.ALUResult)
		result.MEMWB.MemData = data
		result.Err = err

	case exmem.Ctrl.MemWrite:
		value := exmem.StoreValue
		if s.hazardUnit.Forwarding() && memwb.writes(exmem.Rs2) {
			value = memwb.Result()
			result.Forwarded = true
		}
		result.Err = s.lsu.Store(exmem.Inst.Funct3(), exmem.ALUResult, value)
	}

	return result
}

// WritebackStage handles register file writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback writes the result to the register file. Writes to x0 are
// dropped by the register file.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) {
	if !memwb.Valid || !memwb.Ctrl.RegWrite {
		return
	}

	s.regFile.WriteReg(memwb.Rd, memwb.Result())
}
