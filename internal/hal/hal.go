package hal

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/kapitanov/chip8core/internal/driver"
	"github.com/kapitanov/chip8core/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	WindowWidth  = 640
	WindowHeight = 320

	offColor = uint32(0x000000)
	onColor  = uint32(0x79b67b)
)

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

// HAL is the SDL host: one window showing the framebuffer and the
// keyboard as keypad.
type HAL struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	pixels []uint32
	pitch  int
}

var _ driver.Host = (*HAL)(nil)

func New() (_ *HAL, err error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	hal := &HAL{
		pixels: make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		pitch:  vm.ScreenWidth * int(unsafe.Sizeof(uint32(0))),
	}
	defer func() {
		if err != nil {
			hal.Shutdown()
		}
	}()

	hal.window, err = sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		WindowWidth, WindowHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window", "w", WindowWidth, "h", WindowHeight)

	hal.renderer, err = sdl.CreateRenderer(hal.window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	if err = hal.renderer.SetLogicalSize(WindowWidth, WindowHeight); err != nil {
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	hal.texture, err = hal.renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING,
		vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	return hal, nil
}

// Shutdown releases whatever New managed to create.
func (hal *HAL) Shutdown() {
	if hal.texture != nil {
		if err := hal.texture.Destroy(); err != nil {
			slog.Error("failed to destroy sdl texture", "err", err)
		}
	}

	if hal.renderer != nil {
		if err := hal.renderer.Destroy(); err != nil {
			slog.Error("failed to destroy sdl renderer", "err", err)
		}
	}

	if hal.window != nil {
		if err := hal.window.Destroy(); err != nil {
			slog.Error("failed to destroy sdl window", "err", err)
		}
	}

	sdl.Quit()
}

// Physical                Logical
// ================        =================
// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
// | q | w | e | r |       | 4 | 5 | 6 | D |
// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
// | z | x | c | v |       | A | 0 | B | F |
// ================        =================
var keypad = map[sdl.Scancode]vm.Key{
	sdl.SCANCODE_1: vm.Key1, sdl.SCANCODE_2: vm.Key2, sdl.SCANCODE_3: vm.Key3, sdl.SCANCODE_4: vm.KeyC,
	sdl.SCANCODE_Q: vm.Key4, sdl.SCANCODE_W: vm.Key5, sdl.SCANCODE_E: vm.Key6, sdl.SCANCODE_R: vm.KeyD,
	sdl.SCANCODE_A: vm.Key7, sdl.SCANCODE_S: vm.Key8, sdl.SCANCODE_D: vm.Key9, sdl.SCANCODE_F: vm.KeyE,
	sdl.SCANCODE_Z: vm.KeyA, sdl.SCANCODE_X: vm.Key0, sdl.SCANCODE_C: vm.KeyB, sdl.SCANCODE_V: vm.KeyF,
}

// ReadInput drains pending SDL events into the keypad callbacks. Closing
// the window or pressing Escape yields ErrQuit, Backspace yields ErrReboot.
func (hal *HAL) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e := e.(type) {
		case *sdl.QuitEvent:
			slog.Debug("hal: window closed")
			return ErrQuit

		case *sdl.KeyboardEvent:
			pressed := e.Type == sdl.KEYDOWN

			if pressed {
				switch e.Keysym.Scancode {
				case sdl.SCANCODE_ESCAPE:
					slog.Debug("hal: escape pressed")
					return ErrQuit
				case sdl.SCANCODE_BACKSPACE:
					return ErrReboot
				}
			}

			key, ok := keypad[e.Keysym.Scancode]
			if !ok {
				continue
			}

			if pressed {
				keyDown(key)
			} else {
				keyUp(key)
			}
		}
	}

	return nil
}

// Draw presents a row major framebuffer with one byte per pixel.
func (hal *HAL) Draw(gfx []uint8) error {
	for i := range hal.pixels {
		if gfx[i] != 0 {
			hal.pixels[i] = onColor
		} else {
			hal.pixels[i] = offColor
		}
	}

	return hal.present()
}

func (hal *HAL) present() error {
	if err := hal.texture.Update(nil, unsafe.Pointer(&hal.pixels[0]), hal.pitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}
