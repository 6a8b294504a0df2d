package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kapitanov/chip8core/internal/vm"
)

// Host presents frames and reports keypad changes.
type Host interface {
	ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error
	Draw(gfx []uint8) error
}

// Clock paces the machine. Wait blocks until at least one interval has
// elapsed and returns how many did.
type Clock interface {
	Wait(ctx context.Context) (int, error)
}

// Driver runs a machine against a host. The machine is only touched from
// the goroutine calling Run.
type Driver struct {
	machine *vm.VM
	host    Host
	clock   Clock

	idle bool
}

func New(machine *vm.VM, host Host, clock Clock) *Driver {
	return &Driver{
		machine: machine,
		host:    host,
		clock:   clock,
	}
}

// Run cycles the machine until the context is done, the host fails or the
// machine faults. The error is returned as is so callers can match
// host sentinels and *vm.Fault.
func (d *Driver) Run(ctx context.Context) error {
	d.idle = false

	for {
		ticks, err := d.clock.Wait(ctx)
		if err != nil {
			return err
		}

		if err := d.step(ticks); err != nil {
			return err
		}
	}
}

func (d *Driver) step(ticks int) error {
	// One cycle per elapsed interval, so a late wakeup doesn't lose time.
	for range ticks {
		if err := d.machine.Cycle(); err != nil {
			return err
		}
	}

	if idle := d.machine.Idle(); idle != d.idle {
		d.idle = idle
		if idle {
			slog.Info("program looped", "pc", fmt.Sprintf("0x%04x", d.machine.PC()))
		}
	}

	if err := d.host.ReadInput(d.machine.KeyDown, d.machine.KeyUp); err != nil {
		return err
	}

	if d.machine.NeedRedraw {
		if err := d.host.Draw(d.machine.Framebuffer()); err != nil {
			return err
		}
		d.machine.NeedRedraw = false
	}

	return nil
}
