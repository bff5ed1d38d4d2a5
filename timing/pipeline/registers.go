// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import "github.com/sarchlab/rvsim/insts"

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the fetched instruction.
	PC uint32

	// Inst is the decoded instruction from the instruction store.
	Inst insts.Instruction
}

// Clear resets the IF/ID register to empty state.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{Inst: insts.Nop()}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst insts.Instruction

	// Ctrl holds the control signals derived at decode.
	Ctrl insts.ControlSignals

	// Register values read from the register file.
	Rs1Value uint32
	Rs2Value uint32

	// Register numbers for hazard detection.
	Rd  uint8
	Rs1 uint8
	Rs2 uint8
}

// Clear resets the ID/EX register to a bubble.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{Inst: insts.Nop()}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst insts.Instruction

	// Ctrl holds the control signals derived at decode.
	Ctrl insts.ControlSignals

	// ALU result (address for load/store, result for ALU ops, link
	// address for jumps).
	ALUResult uint32

	// StoreValue is the rs2 value for stores.
	StoreValue uint32

	// Rd is the destination register.
	Rd uint8

	// Rs2 is the store data register.
	Rs2 uint8
}

// Clear resets the EX/MEM register to a bubble.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{Inst: insts.Nop()}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst insts.Instruction

	// Ctrl holds the control signals derived at decode.
	Ctrl insts.ControlSignals

	// ALUResult is the result from the execute stage.
	ALUResult uint32

	// MemData is the data loaded by the memory stage.
	MemData uint32

	// Rd is the destination register.
	Rd uint8
}

// Clear resets the MEM/WB register to a bubble.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{Inst: insts.Nop()}
}

// Result returns the value written back: loaded data for loads, the ALU
// result otherwise.
func (r *MEMWBRegister) Result() uint32 {
	if r.Ctrl.MemRead {
		return r.MemData
	}
	return r.ALUResult
}

// writes reports whether the latch will write reg.
func (r *IDEXRegister) writes(reg uint8) bool {
	return r.Valid && r.Ctrl.RegWrite && r.Rd != 0 && r.Rd == reg
}

func (r *EXMEMRegister) writes(reg uint8) bool {
	return r.Valid && r.Ctrl.RegWrite && r.Rd != 0 && r.Rd == reg
}

func (r *MEMWBRegister) writes(reg uint8) bool {
	return r.Valid && r.Ctrl.RegWrite && r.Rd != 0 && r.Rd == reg
}

// latches is one copy of the four inter-stage registers.
type latches struct {
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister
}

func emptyLatches() latches {
	var l latches
	l.ifid.Clear()
	l.idex.Clear()
	l.exmem.Clear()
	l.memwb.Clear()
	return l
}
