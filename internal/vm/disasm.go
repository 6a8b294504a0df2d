package vm

import "fmt"

// Line is one disassembled instruction word.
type Line struct {
	Addr   uint16
	Opcode uint16
	Text   string
}

func (l Line) String() string {
	return fmt.Sprintf("0x%04x  %04X  %s", l.Addr, l.Opcode, l.Text)
}

// Mnemonic returns the assembly form of a single opcode.
func Mnemonic(opcode uint16) string {
	return decode(opcode).Name(opcode)
}

// Disassemble decodes program as consecutive instruction words placed at
// origin. A trailing odd byte is emitted as a data line.
func Disassemble(program []byte, origin uint16) []Line {
	lines := make([]Line, 0, (len(program)+1)/2)

	for i := 0; i+1 < len(program); i += InstructionSize {
		opcode := uint16(program[i])<<8 | uint16(program[i+1])
		lines = append(lines, Line{
			Addr:   origin + uint16(i),
			Opcode: opcode,
			Text:   Mnemonic(opcode),
		})
	}

	if len(program)%2 == 1 {
		last := len(program) - 1
		lines = append(lines, Line{
			Addr:   origin + uint16(last),
			Opcode: uint16(program[last]),
			Text:   fmt.Sprintf("db 0x%02x", program[last]),
		})
	}

	return lines
}
