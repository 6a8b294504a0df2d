package vm

import (
	"context"
	"fmt"
	"log/slog"
)

// ADD I, Vx sets VF once the index passes this address.
const indexFlagThreshold = 0x0F00

func (vm *VM) executeOpcode(opcode uint16) error {
	instr := decode(opcode)

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", vm.pc),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.Name(opcode),
		)
	}

	return instr.Execute(vm, opcode)
}

type instruction struct {
	Name    func(opcode uint16) string
	Execute func(vm *VM, opcode uint16) error
}

// Opcode fields.
//
//	0xFxyn
//	   ||`- n, nibble
//	   |`-- y
//	   `--- x
//	0xFnnn  addr
//	0xFxkk  kk
func opX(opcode uint16) uint8     { return uint8((opcode & 0x0F00) >> 8) }
func opY(opcode uint16) uint8     { return uint8((opcode & 0x00F0) >> 4) }
func opAddr(opcode uint16) uint16 { return opcode & 0x0FFF }
func opKK(opcode uint16) uint8    { return uint8(opcode & 0x00FF) }
func opN(opcode uint16) uint8     { return uint8(opcode & 0x000F) }

func decode(opcode uint16) instruction {
	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode & 0x00FF {
		case 0x00E0:
			// 00E0 - Clear screen
			return clsInstruction

		case 0x00EE:
			// 00EE - Return from subroutine
			return retInstruction
		}

	case 0x1000:
		// 1NNN - Jumps to address NNN
		return jpInstruction

	case 0x2000:
		// 2NNN - Calls subroutine at NNN
		return callInstruction

	case 0x3000:
		// 3XKK - Skips the next instruction if VX equals KK
		return seByteInstruction

	case 0x4000:
		// 4XKK - Skips the next instruction if VX does not equal KK
		return sneByteInstruction

	case 0x5000:
		// 5XY0 - Skips the next instruction if VX equals VY
		return seRegInstruction

	case 0x6000:
		// 6XKK - Sets VX to KK
		return ldByteInstruction

	case 0x7000:
		// 7XKK - Adds KK to VX, no carry
		return addByteInstruction

	case 0x8000:
		// 8XY_
		switch opcode & 0x000F {
		case 0x0000:
			// 8XY0 - Sets VX to the value of VY
			return ldRegInstruction

		case 0x0001:
			// 8XY1 - Sets VX to (VX OR VY)
			return orInstruction

		case 0x0002:
			// 8XY2 - Sets VX to (VX AND VY)
			return andInstruction

		case 0x0003:
			// 8XY3 - Sets VX to (VX XOR VY)
			return xorInstruction

		case 0x0004:
			// 8XY4 - Adds VY to VX. VF is set to 1 when there's a carry.
			return addRegInstruction

		case 0x0005:
			// 8XY5 - VY is subtracted from VX. VF is set to 1 when VX > VY.
			return subInstruction

		case 0x0006:
			// 8XY6 - Shifts VX right by one. VF gets the bit shifted out.
			return shrInstruction

		case 0x0007:
			// 8XY7 - Sets VX to VY minus VX. VF is set to 1 when VY > VX.
			return subnInstruction

		case 0x000E:
			// 8XYE - Shifts VX left by one. VF gets the bit shifted out.
			return shlInstruction
		}

	case 0x9000:
		// 9XY0 - Skips the next instruction if VX doesn't equal VY
		return sneRegInstruction

	case 0xA000:
		// ANNN - Sets I to the address NNN
		return ldIndexInstruction

	case 0xB000:
		// BNNN - Jumps to the address NNN plus V0
		return jpOffsetInstruction

	case 0xC000:
		// CXKK - Sets VX to a random byte masked by KK
		return rndInstruction

	case 0xD000:
		// DXYN - Draws an N rows high sprite from memory at I at (VX, VY).
		return drwInstruction

	case 0xE000:
		switch opcode & 0x00FF {
		case 0x009E:
			// EX9E - Skips the next instruction if the key stored in VX is pressed
			return skpInstruction

		case 0x00A1:
			// EXA1 - Skips the next instruction if the key stored in VX isn't pressed
			return sknpInstruction
		}

	case 0xF000:
		switch opcode & 0x00FF {
		case 0x0007:
			// FX07 - Sets VX to the value of the delay timer
			return ldRegDelayInstruction

		case 0x000A:
			// FX0A - A key press is awaited, and then stored in VX
			return ldKeyInstruction

		case 0x0015:
			// FX15 - Sets the delay timer to VX
			return ldDelayRegInstruction

		case 0x0018:
			// FX18 - Sets the sound timer to VX
			return ldSoundRegInstruction

		case 0x001E:
			// FX1E - Adds VX to I. VF is set to 1 when I ends up above 0x0F00.
			return addIndexInstruction

		case 0x0029:
			// FX29 - Sets I to the font glyph for the digit in VX
			return ldFontInstruction

		case 0x0033:
			// FX33 - Stores the decimal digits of VX at I, I+1 and I+2
			return ldBCDInstruction

		case 0x0055:
			// FX55 - Stores V0 to VX in memory starting at address I
			return storeInstruction

		case 0x0065:
			// FX65 - Reads memory starting at address I into V0...VX
			return loadInstruction
		}
	}

	return unknownInstruction
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// skipIf advances past the current instruction, and past the next one
// as well when cond holds.
func (vm *VM) skipIf(cond bool) {
	if cond {
		vm.pc += InstructionSize
	}
	vm.pc += InstructionSize
}

func regByteName(mnemonic string) func(opcode uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s v%x, 0x%02x", mnemonic, opX(opcode), opKK(opcode))
	}
}

func regRegName(mnemonic string) func(opcode uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s v%x, v%x", mnemonic, opX(opcode), opY(opcode))
	}
}

func regName(format string) func(opcode uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf(format, opX(opcode))
	}
}

func addrName(format string) func(opcode uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf(format, opAddr(opcode))
	}
}

var (
	// 00E0	cls
	clsInstruction = instruction{
		Name: func(opcode uint16) string {
			return "cls"
		},
		Execute: func(vm *VM, opcode uint16) error {
			vm.gfx = [ScreenWidth * ScreenHeight]uint8{}
			vm.NeedRedraw = true
			vm.pc += InstructionSize
			return nil
		},
	}

	// 00EE	ret
	// CALL pushes its own address, so RET resumes right after it.
	retInstruction = instruction{
		Name: func(opcode uint16) string {
			return "ret"
		},
		Execute: func(vm *VM, opcode uint16) error {
			if vm.sp == 0 {
				return ErrStackUnderflow
			}

			vm.sp--
			vm.pc = vm.stack[vm.sp] + InstructionSize
			return nil
		},
	}

	// 1nnn	jp nnn
	jpInstruction = instruction{
		Name: addrName("jp 0x%03x"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.pc = opAddr(opcode)
			return nil
		},
	}

	// 2nnn	call nnn
	callInstruction = instruction{
		Name: addrName("call 0x%03x"),
		Execute: func(vm *VM, opcode uint16) error {
			if int(vm.sp) >= StackSize {
				return fmt.Errorf("%w: %d return addresses", ErrStackOverflow, vm.sp)
			}

			vm.stack[vm.sp] = vm.pc
			vm.sp++
			vm.pc = opAddr(opcode)
			return nil
		},
	}

	// 3xkk	se vx, kk
	seByteInstruction = instruction{
		Name: regByteName("se"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.skipIf(vm.registers[opX(opcode)] == opKK(opcode))
			return nil
		},
	}

	// 4xkk	sne vx, kk
	sneByteInstruction = instruction{
		Name: regByteName("sne"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.skipIf(vm.registers[opX(opcode)] != opKK(opcode))
			return nil
		},
	}

	// 5xy0	se vx, vy
	seRegInstruction = instruction{
		Name: regRegName("se"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.skipIf(vm.registers[opX(opcode)] == vm.registers[opY(opcode)])
			return nil
		},
	}

	// 6xkk	ld vx, kk
	ldByteInstruction = instruction{
		Name: regByteName("ld"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[opX(opcode)] = opKK(opcode)
			vm.pc += InstructionSize
			return nil
		},
	}

	// 7xkk	add vx, kk	No carry generated
	addByteInstruction = instruction{
		Name: regByteName("add"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[opX(opcode)] += opKK(opcode)
			vm.pc += InstructionSize
			return nil
		},
	}

	// 8xy0	ld vx, vy
	ldRegInstruction = instruction{
		Name: regRegName("ld"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[opX(opcode)] = vm.registers[opY(opcode)]
			vm.pc += InstructionSize
			return nil
		},
	}

	// 8xy1	or vx, vy
	orInstruction = instruction{
		Name: regRegName("or"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[opX(opcode)] |= vm.registers[opY(opcode)]
			vm.pc += InstructionSize
			return nil
		},
	}

	// 8xy2	and vx, vy
	andInstruction = instruction{
		Name: regRegName("and"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[opX(opcode)] &= vm.registers[opY(opcode)]
			vm.pc += InstructionSize
			return nil
		},
	}

	// 8xy3	xor vx, vy
	xorInstruction = instruction{
		Name: regRegName("xor"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[opX(opcode)] ^= vm.registers[opY(opcode)]
			vm.pc += InstructionSize
			return nil
		},
	}

	// 8xy4	add vx, vy	carry in vf
	addRegInstruction = instruction{
		Name: regRegName("add"),
		Execute: func(vm *VM, opcode uint16) error {
			vX, vY := opX(opcode), opY(opcode)
			sum := uint16(vm.registers[vX]) + uint16(vm.registers[vY])

			vm.registers[vX] = uint8(sum)
			vm.registers[flagRegister] = flag(sum > 0xFF)

			vm.pc += InstructionSize
			return nil
		},
	}

	// 8xy5	sub vx, vy	vf set to 1 if no borrow
	subInstruction = instruction{
		Name: regRegName("sub"),
		Execute: func(vm *VM, opcode uint16) error {
			vX, vY := opX(opcode), opY(opcode)
			x, y := vm.registers[vX], vm.registers[vY]

			vm.registers[flagRegister] = flag(x > y)
			vm.registers[vX] = x - y

			vm.pc += InstructionSize
			return nil
		},
	}

	// 8x06	shr vx	bit 0 goes into vf
	shrInstruction = instruction{
		Name: regName("shr v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			vX := opX(opcode)
			x := vm.registers[vX]

			vm.registers[flagRegister] = x & 0x1
			vm.registers[vX] = x >> 1

			vm.pc += InstructionSize
			return nil
		},
	}

	// 8xy7	subn vx, vy	vx = vy - vx, vf set to 1 if no borrow
	subnInstruction = instruction{
		Name: regRegName("subn"),
		Execute: func(vm *VM, opcode uint16) error {
			vX, vY := opX(opcode), opY(opcode)
			x, y := vm.registers[vX], vm.registers[vY]

			vm.registers[flagRegister] = flag(y > x)
			vm.registers[vX] = y - x

			vm.pc += InstructionSize
			return nil
		},
	}

	// 8x0e	shl vx	bit 7 goes into vf
	shlInstruction = instruction{
		Name: regName("shl v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			vX := opX(opcode)
			x := vm.registers[vX]

			vm.registers[flagRegister] = x >> 7
			vm.registers[vX] = x << 1

			vm.pc += InstructionSize
			return nil
		},
	}

	// 9xy0	sne vx, vy
	sneRegInstruction = instruction{
		Name: regRegName("sne"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.skipIf(vm.registers[opX(opcode)] != vm.registers[opY(opcode)])
			return nil
		},
	}

	// annn	ld i, nnn
	ldIndexInstruction = instruction{
		Name: addrName("ld i, 0x%03x"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.index = opAddr(opcode)
			vm.pc += InstructionSize
			return nil
		},
	}

	// bnnn	jp v0, nnn
	jpOffsetInstruction = instruction{
		Name: addrName("jp v0, 0x%03x"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.pc = opAddr(opcode) + uint16(vm.registers[0])
			return nil
		},
	}

	// cxkk	rnd vx, kk
	rndInstruction = instruction{
		Name: regByteName("rnd"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[opX(opcode)] = uint8(vm.rng.Uint32()) & opKK(opcode)
			vm.pc += InstructionSize
			return nil
		},
	}

	// dxyn	drw vx, vy, n
	drwInstruction = instruction{
		Name: func(opcode uint16) string {
			return fmt.Sprintf("drw v%x, v%x, %d", opX(opcode), opY(opcode), opN(opcode))
		},
		Execute: func(vm *VM, opcode uint16) error {
			if err := vm.drawSprite(opX(opcode), opY(opcode), opN(opcode)); err != nil {
				return err
			}

			vm.pc += InstructionSize
			return nil
		},
	}

	// ex9e	skp vx
	skpInstruction = instruction{
		Name: regName("skp v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			pressed, err := vm.keyPressed(opX(opcode))
			if err != nil {
				return err
			}

			vm.skipIf(pressed)
			return nil
		},
	}

	// exa1	sknp vx
	sknpInstruction = instruction{
		Name: regName("sknp v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			pressed, err := vm.keyPressed(opX(opcode))
			if err != nil {
				return err
			}

			vm.skipIf(!pressed)
			return nil
		},
	}

	// fx07	ld vx, dt
	ldRegDelayInstruction = instruction{
		Name: regName("ld v%x, dt"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[opX(opcode)] = vm.delayTimer
			vm.pc += InstructionSize
			return nil
		},
	}

	// fx0a	ld vx, k
	ldKeyInstruction = instruction{
		Name: regName("ld v%x, k"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.waitKey(opX(opcode))
			return nil
		},
	}

	// fx15	ld dt, vx
	ldDelayRegInstruction = instruction{
		Name: regName("ld dt, v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.delayTimer = vm.registers[opX(opcode)]
			vm.pc += InstructionSize
			return nil
		},
	}

	// fx18	ld st, vx
	ldSoundRegInstruction = instruction{
		Name: regName("ld st, v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.soundTimer = vm.registers[opX(opcode)]
			vm.pc += InstructionSize
			return nil
		},
	}

	// fx1e	add i, vx
	// VF reports I moving past 0x0F00, not a 12-bit overflow.
	addIndexInstruction = instruction{
		Name: regName("add i, v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.index += uint16(vm.registers[opX(opcode)])
			vm.registers[flagRegister] = flag(vm.index > indexFlagThreshold)

			vm.pc += InstructionSize
			return nil
		},
	}

	// fx29	ld f, vx
	ldFontInstruction = instruction{
		Name: regName("ld f, v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.index = fontStart + uint16(vm.registers[opX(opcode)])*fontGlyphSize
			vm.pc += InstructionSize
			return nil
		},
	}

	// fx33	ld b, vx	Doesn't change I
	ldBCDInstruction = instruction{
		Name: regName("ld b, v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			if err := vm.checkRange(vm.index, 3); err != nil {
				return err
			}

			x := vm.registers[opX(opcode)]
			vm.memory[vm.index] = x / 100
			vm.memory[vm.index+1] = (x / 10) % 10
			vm.memory[vm.index+2] = x % 10

			vm.pc += InstructionSize
			return nil
		},
	}

	// fx55	ld [i], vx	I is left as is
	storeInstruction = instruction{
		Name: regName("ld [i], v%x"),
		Execute: func(vm *VM, opcode uint16) error {
			n := int(opX(opcode)) + 1
			if err := vm.checkRange(vm.index, n); err != nil {
				return err
			}

			copy(vm.memory[vm.index:], vm.registers[:n])

			vm.pc += InstructionSize
			return nil
		},
	}

	// fx65	ld vx, [i]	I is left as is
	loadInstruction = instruction{
		Name: regName("ld v%x, [i]"),
		Execute: func(vm *VM, opcode uint16) error {
			n := int(opX(opcode)) + 1
			if err := vm.checkRange(vm.index, n); err != nil {
				return err
			}

			copy(vm.registers[:n], vm.memory[vm.index:])

			vm.pc += InstructionSize
			return nil
		},
	}

	unknownInstruction = instruction{
		Name: func(opcode uint16) string {
			return fmt.Sprintf("unknown 0x%04X", opcode)
		},
		Execute: func(vm *VM, opcode uint16) error {
			return fmt.Errorf("%w: 0x%04X", ErrUnimplementedOpcode, opcode)
		},
	}
)
