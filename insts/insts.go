// Package insts provides RV32I (+ M subset) instruction definitions,
// decoding and control signal derivation.
//
// This package turns raw 32-bit RISC-V machine words into structured,
// immutable instruction values. It supports:
//   - R-type (opcode 0x33): ADD, SUB, SLL, SRL, SRA, MUL, DIV, ...
//   - I-type (opcodes 0x13, 0x03, 0x67): ADDI, shifts, loads, JALR
//   - S-type (opcode 0x23): stores
//   - B-type (opcode 0x63): conditional branches
//   - U-type (opcodes 0x37, 0x17): LUI, AUIPC
//   - J-type (opcode 0x6F): JAL
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00500093) // addi x1, x0, 5
//	fmt.Printf("%v rd=%d imm=%d\n", inst.Format, inst.Rd(), inst.Imm())
package insts
