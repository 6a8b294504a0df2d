package vm

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	MaxProgramSize  = MemorySize - int(ProgramStart)
	InstructionSize = 2

	flagRegister = 0x0F
)

type VM struct {
	memory    [MemorySize]uint8    // Memory (4k)
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    uint16            // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	gfx        [ScreenWidth * ScreenHeight]uint8 // Graphics buffer
	waitForKey bool                              // Set while FX0A is blocking

	// Keys is the keypad state. The host writes it between cycles only.
	Keys [KeyCount]bool

	// NeedRedraw is set whenever the framebuffer changes. The host clears it
	// once it has presented the frame.
	NeedRedraw bool

	rng      *rand.Rand
	oversize OversizePolicy
	program  []byte
}

// OversizePolicy selects what Load does with a ROM that does not fit into
// the program region.
type OversizePolicy int

const (
	// RejectOversize leaves memory untouched and returns *ROMTooLargeError.
	RejectOversize OversizePolicy = iota
	// TruncateOversize loads the first MaxProgramSize bytes and still
	// returns *ROMTooLargeError with Truncated set.
	TruncateOversize
)

type Option func(vm *VM)

// WithSeed makes RND reproducible.
func WithSeed(seed uint64) Option {
	return func(vm *VM) {
		vm.rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	}
}

func WithRand(r *rand.Rand) Option {
	return func(vm *VM) {
		vm.rng = r
	}
}

func WithOversizePolicy(p OversizePolicy) Option {
	return func(vm *VM) {
		vm.oversize = p
	}
}

func New(opts ...Option) *VM {
	vm := &VM{}
	for _, opt := range opts {
		opt(vm)
	}

	if vm.rng == nil {
		vm.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	vm.initialize()
	return vm
}

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// LoadFile reads a ROM image from disk, see Load.
func (vm *VM) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return vm.Load(f)
}

// Load resets the machine and copies a raw ROM image to ProgramStart.
func (vm *VM) Load(r io.Reader) error {
	bs, err := io.ReadAll(io.LimitReader(r, int64(MaxProgramSize)+1))
	if err != nil {
		return fmt.Errorf("unable to read rom: %w", err)
	}

	var sizeErr *ROMTooLargeError
	if len(bs) > MaxProgramSize {
		rest, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("unable to read rom: %w", err)
		}

		sizeErr = &ROMTooLargeError{
			Size: len(bs) + int(rest),
			Max:  MaxProgramSize,
		}
		if vm.oversize != TruncateOversize {
			return sizeErr
		}

		sizeErr.Truncated = true
		bs = bs[:MaxProgramSize]
	}

	vm.program = bs
	vm.initialize()
	vm.NeedRedraw = true

	if sizeErr != nil {
		return sizeErr
	}
	return nil
}

// Reset reboots the machine with the last loaded program.
func (vm *VM) Reset() {
	vm.initialize()
	vm.NeedRedraw = true
}

func (vm *VM) initialize() {
	vm.pc = ProgramStart
	vm.index = 0
	vm.sp = 0
	vm.waitForKey = false

	// Clear the display
	vm.gfx = [ScreenWidth * ScreenHeight]uint8{}
	vm.NeedRedraw = false

	// Clear the stack, keypad, and V registers
	vm.stack = [StackSize]uint16{}
	vm.Keys = [KeyCount]bool{}
	vm.registers = [RegisterCount]uint8{}

	// Clear memory
	vm.memory = [MemorySize]uint8{}

	// Load font set into memory
	copy(vm.memory[fontStart:], chip8Font[:])

	// Load program into memory
	if len(vm.program) > 0 {
		slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(vm.program))
		copy(vm.memory[ProgramStart:], vm.program)
	}

	// Reset timers
	vm.delayTimer = 0
	vm.soundTimer = 0
}

func (vm *VM) KeyDown(key Key) {
	vm.Keys[int(key)&0x0F] = true
}

func (vm *VM) KeyUp(key Key) {
	vm.Keys[int(key)&0x0F] = false
}

// Cycle runs exactly one fetch-decode-execute step and then ticks the
// timers unless the machine is blocked on FX0A. A failing instruction
// leaves the machine as it was and is reported as *Fault.
func (vm *VM) Cycle() error {
	pc := vm.pc

	opcode, err := vm.fetchOpcode()
	if err != nil {
		return &Fault{PC: pc, Err: err}
	}

	if err := vm.executeOpcode(opcode); err != nil {
		return &Fault{PC: pc, Opcode: opcode, Err: err}
	}

	// Update timers
	if !vm.waitForKey {
		if vm.delayTimer > 0 {
			vm.delayTimer--
		}

		if vm.soundTimer > 0 {
			vm.soundTimer--
		}
	}

	return nil
}

func (vm *VM) fetchOpcode() (uint16, error) {
	if err := vm.checkRange(vm.pc, InstructionSize); err != nil {
		return 0, err
	}

	hi := vm.memory[vm.pc]
	lo := vm.memory[vm.pc+1]

	opcode := uint16(hi)<<8 | uint16(lo) // Op code is two bytes
	return opcode, nil
}

// checkRange reports whether n bytes starting at addr are addressable.
// An empty range never faults.
func (vm *VM) checkRange(addr uint16, n int) error {
	if n > 0 && int(addr)+n > MemorySize {
		return fmt.Errorf("%w: 0x%04x+%d", ErrMemoryOutOfBounds, addr, n)
	}
	return nil
}

// Idle reports whether the current instruction jumps to itself, which is
// how most programs park once they are done.
func (vm *VM) Idle() bool {
	opcode, err := vm.fetchOpcode()
	if err != nil {
		return false
	}
	return opcode&0xF000 == 0x1000 && opAddr(opcode) == vm.pc
}

func (vm *VM) PC() uint16           { return vm.pc }
func (vm *VM) Index() uint16        { return vm.index }
func (vm *VM) StackPointer() uint16 { return vm.sp }
func (vm *VM) DelayTimer() uint8    { return vm.delayTimer }
func (vm *VM) SoundTimer() uint8    { return vm.soundTimer }
func (vm *VM) WaitingForKey() bool  { return vm.waitForKey }

func (vm *VM) Register(i int) uint8 {
	return vm.registers[i&0x0F]
}

// Framebuffer returns the live ScreenWidth*ScreenHeight pixel grid, row
// major, one byte (0 or 1) per pixel. Callers must not modify it.
func (vm *VM) Framebuffer() []uint8 {
	return vm.gfx[:]
}

// Memory returns the live memory image. Callers must not modify it.
func (vm *VM) Memory() []uint8 {
	return vm.memory[:]
}
