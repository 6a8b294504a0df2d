package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/kapitanov/chip8core/internal/driver"
	"github.com/kapitanov/chip8core/internal/hal"
	"github.com/kapitanov/chip8core/internal/vm"
	"github.com/spf13/cobra"
)

const defaultTick = 1200 * time.Microsecond

func main() {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	verbose := cmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	tick := cmd.Flags().Duration("tick", defaultTick, "time between two cpu cycles")
	seed := cmd.Flags().Uint64("seed", 0, "seed for the random number generator (0 picks one)")
	truncate := cmd.Flags().Bool("truncate", false, "load roms larger than program memory truncated instead of failing")

	cmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if *verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))
	}

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		if *tick <= 0 {
			return fmt.Errorf("invalid tick %s", *tick)
		}

		var opts []vm.Option
		if *seed != 0 {
			opts = append(opts, vm.WithSeed(*seed))
		}
		if *truncate {
			opts = append(opts, vm.WithOversizePolicy(vm.TruncateOversize))
		}

		machine := vm.New(opts...)
		if err := loadROM(machine, args[0]); err != nil {
			return err
		}

		h, err := hal.New()
		if err != nil {
			return fmt.Errorf("unable to initialize hal: %w", err)
		}
		defer h.Shutdown()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		clock := driver.NewTicker(*tick)
		defer clock.Stop()

		d := driver.New(machine, h, clock)
		for {
			err = d.Run(ctx)

			if errors.Is(err, hal.ErrReboot) {
				slog.Info("reboot")
				machine.Reset()
				continue
			}

			if errors.Is(err, hal.ErrQuit) || errors.Is(err, context.Canceled) {
				return nil
			}

			return fmt.Errorf("machine halted: %w", err)
		}
	}

	cmd.AddCommand(disasmCommand())

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func loadROM(machine *vm.VM, path string) error {
	err := machine.LoadFile(path)

	var sizeErr *vm.ROMTooLargeError
	if errors.As(err, &sizeErr) && sizeErr.Truncated {
		slog.Warn("rom truncated", "path", path, "size", sizeErr.Size, "loaded", sizeErr.Max)
		return nil
	}

	if err != nil {
		return fmt.Errorf("unable to load file %q: %w", path, err)
	}
	return nil
}

func disasmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm PATH_TO_ROM_FILE",
		Short: "Print the instructions of a rom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			bs, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("unable to load file %q: %w", path, err)
			}

			out := cmd.OutOrStdout()
			for _, line := range vm.Disassemble(bs, vm.ProgramStart) {
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
