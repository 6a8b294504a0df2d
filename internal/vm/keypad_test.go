package vm

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestWaitKey(t *testing.T) {
	vm := newTestVM(t,
		0xF30A, // ld v3, k
		0x6000, // ld v0, 0
	)
	vm.delayTimer = 10
	vm.soundTimer = 20

	for range 5 {
		assert.NoError(t, vm.Cycle())
		assert.True(t, vm.WaitingForKey())
		assert.Equal(t, ProgramStart, vm.PC())
		assert.Equal(t, uint8(10), vm.DelayTimer())
		assert.Equal(t, uint8(20), vm.SoundTimer())
	}

	vm.Keys[0xB] = true
	assert.NoError(t, vm.Cycle())

	assert.False(t, vm.WaitingForKey())
	assert.Equal(t, uint8(0xB), vm.Register(3))
	assert.Equal(t, uint16(0x202), vm.PC())
	assert.Equal(t, uint8(9), vm.DelayTimer())

	assert.NoError(t, vm.Cycle())
	assert.Equal(t, uint8(8), vm.DelayTimer())
	assert.Equal(t, uint8(18), vm.SoundTimer())
}

func TestWaitKey_LowestKeyWins(t *testing.T) {
	vm := newTestVM(t, 0xF10A)
	vm.Keys[0x9] = true
	vm.Keys[0x4] = true
	vm.Keys[0xF] = true

	assert.NoError(t, vm.Cycle())

	assert.Equal(t, uint8(0x4), vm.Register(1))
	assert.Equal(t, uint16(0x202), vm.PC())
}

func TestWaitKey_ReleasedBeforeCycle(t *testing.T) {
	vm := newTestVM(t, 0xF10A)

	assert.NoError(t, vm.Cycle())

	vm.KeyDown(Key2)
	vm.KeyUp(Key2)
	assert.NoError(t, vm.Cycle())

	assert.True(t, vm.WaitingForKey())
	assert.Equal(t, ProgramStart, vm.PC())
}

func TestWaitKey_KeyZero(t *testing.T) {
	vm := newTestVM(t, 0xF10A)
	vm.registers[1] = 0xEE
	vm.KeyDown(Key0)

	assert.NoError(t, vm.Cycle())
	assert.Equal(t, uint8(0), vm.Register(1))
}
