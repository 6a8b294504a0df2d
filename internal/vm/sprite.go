package vm

const spriteWidth = 8

// drawSprite XORs an n rows high sprite read from memory at I onto the
// screen at (Vx, Vy). Every pixel wraps around the screen edges on its
// own, so a sprite crossing an edge reappears on the opposite side.
//
// VF is OR-ed with the collision of every pixel; it is never reset here.
func (vm *VM) drawSprite(vX, vY, n uint8) error {
	if err := vm.checkRange(vm.index, int(n)); err != nil {
		return err
	}

	xLocation, yLocation := int(vm.registers[vX]), int(vm.registers[vY])

	var collision uint8
	for row := 0; row < int(n); row++ {
		sprite := vm.memory[int(vm.index)+row]
		y := (yLocation + row) % ScreenHeight

		for col := 0; col < spriteWidth; col++ {
			x := (xLocation + col) % ScreenWidth
			bit := (sprite >> (spriteWidth - 1 - col)) & 1

			screenAddr := y*ScreenWidth + x
			collision |= bit & vm.gfx[screenAddr]
			vm.gfx[screenAddr] ^= bit
		}
	}

	vm.registers[flagRegister] |= collision
	vm.NeedRedraw = true
	return nil
}
