package vm

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestMnemonic(t *testing.T) {
	tests := []struct {
		opcode uint16
		text   string
	}{
		{0x00E0, "cls"},
		{0x00EE, "ret"},
		{0x1228, "jp 0x228"},
		{0x2ABC, "call 0xabc"},
		{0x3A07, "se va, 0x07"},
		{0x4A07, "sne va, 0x07"},
		{0x5AB0, "se va, vb"},
		{0x6C10, "ld vc, 0x10"},
		{0x7C10, "add vc, 0x10"},
		{0x8120, "ld v1, v2"},
		{0x8124, "add v1, v2"},
		{0x8127, "subn v1, v2"},
		{0x810E, "shl v1"},
		{0x9AB0, "sne va, vb"},
		{0xA2F0, "ld i, 0x2f0"},
		{0xB200, "jp v0, 0x200"},
		{0xC30F, "rnd v3, 0x0f"},
		{0xD12F, "drw v1, v2, 15"},
		{0xE49E, "skp v4"},
		{0xE4A1, "sknp v4"},
		{0xF507, "ld v5, dt"},
		{0xF50A, "ld v5, k"},
		{0xF515, "ld dt, v5"},
		{0xF518, "ld st, v5"},
		{0xF51E, "add i, v5"},
		{0xF529, "ld f, v5"},
		{0xF533, "ld b, v5"},
		{0xF555, "ld [i], v5"},
		{0xF565, "ld v5, [i]"},
		{0xFFFF, "unknown 0xFFFF"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.text, Mnemonic(tt.opcode))
		})
	}
}

func TestDisassemble(t *testing.T) {
	lines := Disassemble([]byte{0x00, 0xE0, 0x12, 0x00, 0x7F}, ProgramStart)

	assert.Len(t, lines, 3)
	assert.Equal(t, Line{Addr: 0x200, Opcode: 0x00E0, Text: "cls"}, lines[0])
	assert.Equal(t, Line{Addr: 0x202, Opcode: 0x1200, Text: "jp 0x200"}, lines[1])
	assert.Equal(t, Line{Addr: 0x204, Opcode: 0x7F, Text: "db 0x7f"}, lines[2])
	assert.Equal(t, "0x0202  1200  jp 0x200", lines[1].String())
}

func TestDisassemble_Empty(t *testing.T) {
	assert.Len(t, Disassemble(nil, ProgramStart), 0)
}
