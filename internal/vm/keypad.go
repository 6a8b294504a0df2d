package vm

import "fmt"

// waitKey implements FX0A. While no key is pressed the machine stays on
// the same instruction with its timers frozen; the first pressed key in
// ascending order is stored in Vx and releases the wait.
func (vm *VM) waitKey(vX uint8) {
	vm.waitForKey = true

	for i, pressed := range vm.Keys {
		if pressed {
			vm.registers[vX] = uint8(i)
			vm.waitForKey = false
			vm.pc += InstructionSize
			return
		}
	}
}

func (vm *VM) keyPressed(vX uint8) (bool, error) {
	key := vm.registers[vX]
	if int(key) >= KeyCount {
		return false, fmt.Errorf("%w: v%x holds 0x%02x", ErrInvalidKey, vX, key)
	}
	return vm.Keys[key], nil
}
