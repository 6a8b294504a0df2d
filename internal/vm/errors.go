package vm

import (
	"errors"
	"fmt"
)

var (
	ErrUnimplementedOpcode = errors.New("unimplemented opcode")
	ErrStackOverflow       = errors.New("stack overflow")
	ErrStackUnderflow      = errors.New("stack underflow")
	ErrMemoryOutOfBounds   = errors.New("memory out of bounds")
	ErrInvalidKey          = errors.New("invalid key")
	ErrROMTooLarge         = errors.New("rom too large")
)

// Fault is returned by Cycle when an instruction cannot be executed.
// The machine state is the same as before the failing cycle.
type Fault struct {
	PC     uint16
	Opcode uint16
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at 0x%04x (opcode 0x%04X): %v", f.PC, f.Opcode, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

type ROMTooLargeError struct {
	Size      int  // Size of the rom image in bytes
	Max       int  // Capacity of the program region
	Truncated bool // Only the first Max bytes were loaded
}

func (e *ROMTooLargeError) Error() string {
	if e.Truncated {
		return fmt.Sprintf("rom too large: %d bytes (max: %d), truncated", e.Size, e.Max)
	}
	return fmt.Sprintf("rom too large: %d bytes (max: %d)", e.Size, e.Max)
}

func (e *ROMTooLargeError) Is(target error) bool {
	return target == ErrROMTooLarge
}
