package vm

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/retroenv/retrogolib/assert"
)

func program(ops ...uint16) []byte {
	bs := make([]byte, 0, len(ops)*InstructionSize)
	for _, op := range ops {
		bs = append(bs, byte(op>>8), byte(op))
	}
	return bs
}

func newTestVM(t *testing.T, ops ...uint16) *VM {
	t.Helper()

	vm := New(WithSeed(1))
	assert.NoError(t, vm.Load(bytes.NewReader(program(ops...))))
	return vm
}

func TestNew(t *testing.T) {
	vm := New()

	assert.Equal(t, ProgramStart, vm.PC())
	assert.Equal(t, uint16(0), vm.Index())
	assert.Equal(t, uint16(0), vm.StackPointer())
	assert.Equal(t, uint8(0), vm.DelayTimer())
	assert.Equal(t, uint8(0), vm.SoundTimer())
	assert.False(t, vm.NeedRedraw)
	assert.False(t, vm.WaitingForKey())
	assert.Equal(t, chip8Font[:], vm.Memory()[:len(chip8Font)])

	for i := range RegisterCount {
		assert.Equal(t, uint8(0), vm.Register(i))
	}
	for _, p := range vm.Framebuffer() {
		assert.Equal(t, uint8(0), p)
	}
}

func TestLoad(t *testing.T) {
	rom := []byte{0x00, 0xE0, 0x12, 0x02, 0xAB}
	vm := New()

	assert.NoError(t, vm.Load(bytes.NewReader(rom)))

	assert.Equal(t, rom, vm.Memory()[ProgramStart:int(ProgramStart)+len(rom)])
	assert.Equal(t, chip8Font[:], vm.Memory()[:len(chip8Font)])
	assert.Equal(t, uint8(0), vm.Memory()[int(ProgramStart)+len(rom)])
	assert.True(t, vm.NeedRedraw)
}

func TestLoad_FullProgramRegion(t *testing.T) {
	rom := bytes.Repeat([]byte{0x5A}, MaxProgramSize)
	vm := New()

	assert.NoError(t, vm.Load(bytes.NewReader(rom)))
	assert.Equal(t, uint8(0x5A), vm.Memory()[MemorySize-1])
}

func TestLoad_TooLargeRejected(t *testing.T) {
	vm := newTestVM(t, 0x1234)
	rom := bytes.Repeat([]byte{0xFF}, MaxProgramSize+10)

	err := vm.Load(bytes.NewReader(rom))
	assert.ErrorIs(t, err, ErrROMTooLarge)

	var sizeErr *ROMTooLargeError
	assert.True(t, errors.As(err, &sizeErr))
	assert.Equal(t, MaxProgramSize+10, sizeErr.Size)
	assert.Equal(t, MaxProgramSize, sizeErr.Max)
	assert.False(t, sizeErr.Truncated)

	// The previous program is still in place.
	assert.Equal(t, []byte{0x12, 0x34}, vm.Memory()[ProgramStart:ProgramStart+2])
}

func TestLoad_TooLargeTruncated(t *testing.T) {
	vm := New(WithOversizePolicy(TruncateOversize))
	rom := bytes.Repeat([]byte{0xEE}, MaxProgramSize+1)

	err := vm.Load(bytes.NewReader(rom))
	assert.ErrorIs(t, err, ErrROMTooLarge)

	var sizeErr *ROMTooLargeError
	assert.True(t, errors.As(err, &sizeErr))
	assert.True(t, sizeErr.Truncated)
	assert.Equal(t, MaxProgramSize+1, sizeErr.Size)
	assert.Equal(t, rom[:MaxProgramSize], vm.Memory()[ProgramStart:])
	assert.Equal(t, chip8Font[:], vm.Memory()[:len(chip8Font)])
}

func TestLoad_ReadError(t *testing.T) {
	errBroken := errors.New("broken")
	vm := New()

	err := vm.Load(iotest.ErrReader(errBroken))
	assert.ErrorIs(t, err, errBroken)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ch8")
	assert.NoError(t, os.WriteFile(path, program(0x6A42), 0o644))

	vm := New()
	assert.NoError(t, vm.LoadFile(path))
	assert.NoError(t, vm.Cycle())
	assert.Equal(t, uint8(0x42), vm.Register(0xA))
}

func TestLoadFile_Missing(t *testing.T) {
	vm := New()

	err := vm.LoadFile(filepath.Join(t.TempDir(), "missing.ch8"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReset(t *testing.T) {
	vm := newTestVM(t, 0x6A42, 0xA321, 0x2200)
	for range 3 {
		assert.NoError(t, vm.Cycle())
	}
	vm.KeyDown(Key5)
	vm.NeedRedraw = false

	vm.Reset()

	assert.Equal(t, ProgramStart, vm.PC())
	assert.Equal(t, uint16(0), vm.Index())
	assert.Equal(t, uint16(0), vm.StackPointer())
	assert.Equal(t, uint8(0), vm.Register(0xA))
	assert.False(t, vm.Keys[Key5])
	assert.True(t, vm.NeedRedraw)
	assert.Equal(t, program(0x6A42), vm.Memory()[ProgramStart:ProgramStart+2])
}

func TestFetchOpcode(t *testing.T) {
	vm := New()
	for i := range vm.memory {
		vm.memory[i] = uint8(i * 7)
	}

	for _, pc := range []uint16{0x000, 0x001, 0x200, 0x3FF, 0xABC, 0xFFE} {
		vm.pc = pc

		opcode, err := vm.fetchOpcode()
		assert.NoError(t, err)
		assert.Equal(t, uint16(vm.memory[pc])<<8|uint16(vm.memory[pc+1]), opcode)
	}
}

func TestCycle_FetchOutOfBounds(t *testing.T) {
	vm := newTestVM(t)
	vm.pc = MemorySize - 1

	err := vm.Cycle()
	assert.ErrorIs(t, err, ErrMemoryOutOfBounds)
	assert.Equal(t, uint16(MemorySize-1), vm.PC())
}

func TestCycle_Timers(t *testing.T) {
	vm := newTestVM(t,
		0x6003, // ld v0, 3
		0xF015, // ld dt, v0
		0xF018, // ld st, v0
		0x1206, // jp 0x206
	)

	assert.NoError(t, vm.Cycle())
	assert.NoError(t, vm.Cycle())
	assert.Equal(t, uint8(2), vm.DelayTimer())

	assert.NoError(t, vm.Cycle())
	assert.Equal(t, uint8(1), vm.DelayTimer())
	assert.Equal(t, uint8(2), vm.SoundTimer())

	for range 4 {
		assert.NoError(t, vm.Cycle())
	}
	assert.Equal(t, uint8(0), vm.DelayTimer())
	assert.Equal(t, uint8(0), vm.SoundTimer())
}

func TestCycle_UnimplementedOpcode(t *testing.T) {
	vm := newTestVM(t, 0xFFFF)
	vm.delayTimer = 5
	vm.registers[3] = 9

	err := vm.Cycle()
	assert.ErrorIs(t, err, ErrUnimplementedOpcode)

	var fault *Fault
	assert.True(t, errors.As(err, &fault))
	assert.Equal(t, ProgramStart, fault.PC)
	assert.Equal(t, uint16(0xFFFF), fault.Opcode)

	// Nothing moved, including the timers.
	assert.Equal(t, ProgramStart, vm.PC())
	assert.Equal(t, uint8(5), vm.DelayTimer())
	assert.Equal(t, uint8(9), vm.Register(3))
}

func TestIdle(t *testing.T) {
	vm := newTestVM(t, 0x6001, 0x1202)

	assert.False(t, vm.Idle())
	assert.NoError(t, vm.Cycle())
	assert.True(t, vm.Idle())
	assert.NoError(t, vm.Cycle())
	assert.Equal(t, uint16(0x202), vm.PC())
	assert.True(t, vm.Idle())
}

func TestKeyDownUp(t *testing.T) {
	vm := New()

	vm.KeyDown(KeyC)
	assert.True(t, vm.Keys[0xC])

	vm.KeyUp(KeyC)
	assert.False(t, vm.Keys[0xC])
}
