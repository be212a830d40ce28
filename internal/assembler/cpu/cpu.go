// Package cpu enumerates the TESSERA-16 instruction set: opcodes, register
// indices and condition codes. The assembler front end only reads these
// constants; encoding and execution live downstream.
package cpu

const (
	OpNOP  uint16 = 0x00
	OpHLT  uint16 = 0x01
	OpRET  uint16 = 0x02
	OpRETI uint16 = 0x03
	OpEI   uint16 = 0x04
	OpDI   uint16 = 0x05
	OpWFI  uint16 = 0x06

	OpMOV uint16 = 0x10
	OpLDI uint16 = 0x11
	OpLD  uint16 = 0x12
	OpST  uint16 = 0x13
	OpLDB uint16 = 0x14
	OpSTB uint16 = 0x15

	OpADD uint16 = 0x20
	OpSUB uint16 = 0x21
	OpAND uint16 = 0x22
	OpOR  uint16 = 0x23
	OpXOR uint16 = 0x24
	OpMUL uint16 = 0x25
	OpDIV uint16 = 0x26
	OpSHL uint16 = 0x27
	OpSHR uint16 = 0x28
	OpNOT uint16 = 0x29
	OpNEG uint16 = 0x2A
	OpCMP uint16 = 0x2B

	OpPUSH uint16 = 0x30
	OpPOP  uint16 = 0x31

	OpJMP  uint16 = 0x40
	OpCALL uint16 = 0x41
	OpJR   uint16 = 0x42
)

const (
	RegR0 uint16 = 0
	RegR1 uint16 = 1
	RegR2 uint16 = 2
	RegR3 uint16 = 3
	RegR4 uint16 = 4
	RegR5 uint16 = 5
	RegR6 uint16 = 6
	RegR7 uint16 = 7
	RegSP uint16 = 8
	RegPC uint16 = 9
)

// Condition codes usable as the optional first operand of jmp/call/jr.
const (
	CondEQ uint16 = 0x0
	CondNE uint16 = 0x1
	CondCS uint16 = 0x2
	CondCC uint16 = 0x3
	CondMI uint16 = 0x4
	CondPL uint16 = 0x5
	CondLT uint16 = 0x6
	CondLE uint16 = 0x7
	CondGT uint16 = 0x8
	CondGE uint16 = 0x9
)
