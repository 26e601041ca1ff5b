package debug

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/Versifine/mouselook/internal/config"
	"github.com/Versifine/mouselook/internal/event"
	"github.com/Versifine/mouselook/internal/platform"
	"github.com/Versifine/mouselook/internal/pointer"
)

const (
	smallStep = 4
	largeStep = 40
)

// Controller is the slice of the tick loop the console drives.
type Controller interface {
	Activate()
	Deactivate()
	Recenter()
}

type SensitivityStore interface {
	Sensitivity() pointer.Sensitivity
	Store(s pointer.Sensitivity)
}

// Console turns terminal keys into synthetic pointer events, for exercising
// the pointer pipeline without a mouse.
type Console struct {
	device      *platform.ChanDevice
	controller  Controller
	sensitivity SensitivityStore
	bus         *event.Bus
	out         io.Writer

	mu          sync.Mutex
	held        pointer.ButtonSet
	active      bool
	lastFrame   event.ActionFrame
	commandMode bool
	commandBuf  []rune
	statusWidth int
}

func NewConsole(device *platform.ChanDevice, controller Controller, sensitivity SensitivityStore, bus *event.Bus) *Console {
	return &Console{
		device:      device,
		controller:  controller,
		sensitivity: sensitivity,
		bus:         bus,
		out:         os.Stdout,
	}
}

func (c *Console) Start(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("console is nil")
	}
	if c.device == nil {
		return fmt.Errorf("console device is nil")
	}
	if c.controller == nil {
		return fmt.Errorf("console controller is nil")
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Fprint(c.out, "\r\n")
	}()

	if c.bus != nil {
		unsubFrames := c.bus.Subscribe(event.EventActionFrame, c.onFrame)
		defer unsubFrames()
		unsubActivation := c.bus.Subscribe(event.EventActivation, c.onActivation)
		defer unsubActivation()
	}

	fmt.Fprint(c.out, "[debug] console started (arrows/hjkl move, HJKL move fast, 1-3 buttons, u/d wheel, a/z activate, :help)\r\n")
	c.renderStatusLine()

	keys := make(chan byte)
	readErr := make(chan error, 1)
	reader := bufio.NewReader(os.Stdin)
	go func() {
		for {
			b, err := reader.ReadByte()
			if err != nil {
				readErr <- err
				return
			}
			keys <- b
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read console input: %w", err)
		case b := <-keys:
			if b == 3 { // Ctrl-C in raw mode
				return context.Canceled
			}
			c.handleKey(b, keys)
		}
	}
}

func (c *Console) onFrame(raw any) {
	frame, ok := raw.(event.ActionFrame)
	if !ok {
		return
	}
	c.mu.Lock()
	c.lastFrame = frame
	c.mu.Unlock()
	c.renderStatusLine()
}

func (c *Console) onActivation(raw any) {
	evt, ok := raw.(event.ActivationEvent)
	if !ok {
		return
	}
	c.mu.Lock()
	c.active = evt.Active
	c.mu.Unlock()
}

// handleKey processes one key. Escape sequences pull their remaining bytes
// from more.
func (c *Console) handleKey(b byte, more <-chan byte) {
	if c.isCommandMode() {
		c.handleCommandByte(b)
		return
	}

	switch b {
	case ':':
		c.enterCommandMode()
		return
	case 'h':
		c.move(-smallStep, 0)
	case 'l':
		c.move(smallStep, 0)
	case 'k':
		c.move(0, -smallStep)
	case 'j':
		c.move(0, smallStep)
	case 'H':
		c.move(-largeStep, 0)
	case 'L':
		c.move(largeStep, 0)
	case 'K':
		c.move(0, -largeStep)
	case 'J':
		c.move(0, largeStep)
	case '1':
		c.toggleButton(pointer.ButtonPrimary)
	case '2':
		c.toggleButton(pointer.ButtonMiddle)
	case '3':
		c.toggleButton(pointer.ButtonSecondary)
	case 'u':
		c.device.Push(platform.Scroll(true))
	case 'd':
		c.device.Push(platform.Scroll(false))
	case 'a':
		c.controller.Activate()
	case 'z':
		c.controller.Deactivate()
	case 'c':
		c.controller.Recenter()
	case 27: // ESC + arrow sequence
		if next, ok := <-more; !ok || next != '[' {
			return
		}
		arrow, ok := <-more
		if !ok {
			return
		}
		switch arrow {
		case 'D':
			c.move(-smallStep, 0)
		case 'C':
			c.move(smallStep, 0)
		case 'A':
			c.move(0, -smallStep)
		case 'B':
			c.move(0, smallStep)
		}
	}
	c.renderStatusLine()
}

func (c *Console) move(dx, dy int) {
	if !c.device.Push(platform.Motion(dx, dy)) {
		slog.Debug("debug motion dropped, queue full")
	}
}

func (c *Console) toggleButton(button int) {
	c.mu.Lock()
	down := !c.held.Has(button)
	if down {
		c.held = c.held.With(button)
	} else {
		c.held = c.held.Without(button)
	}
	c.mu.Unlock()
	c.device.Push(platform.Button(button, down))
}

func (c *Console) enterCommandMode() {
	c.mu.Lock()
	c.commandMode = true
	c.commandBuf = c.commandBuf[:0]
	c.mu.Unlock()
	fmt.Fprint(c.out, "\r\n:")
}

func (c *Console) handleCommandByte(b byte) {
	switch b {
	case 13, 10: // Enter
		c.mu.Lock()
		cmd := strings.TrimSpace(string(c.commandBuf))
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()

		fmt.Fprint(c.out, "\r\n")
		if cmd != "" {
			c.executeCommand(cmd)
		}
		c.renderStatusLine()
	case 27: // ESC
		c.mu.Lock()
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()
		fmt.Fprint(c.out, "\r\n[debug] command cancelled\r\n")
		c.renderStatusLine()
	case 8, 127: // Backspace
		c.mu.Lock()
		if len(c.commandBuf) > 0 {
			c.commandBuf = c.commandBuf[:len(c.commandBuf)-1]
		}
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s \r:%s", buf, buf)
	default:
		if b < 32 || b > 126 {
			return
		}
		c.mu.Lock()
		c.commandBuf = append(c.commandBuf, rune(b))
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s", buf)
	}
}

func (c *Console) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "help":
		c.printHelp()
	case "move":
		if len(parts) != 3 {
			fmt.Fprint(c.out, "[debug] usage: :move <dx> <dy>\r\n")
			return
		}
		dx, err1 := strconv.Atoi(parts[1])
		dy, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil {
			fmt.Fprint(c.out, "[debug] invalid move args\r\n")
			return
		}
		c.move(dx, dy)
	case "sens":
		c.handleSensCommand(parts)
	case "invert":
		c.updateSensitivity(func(s *pointer.Sensitivity) { s.InvertVertical = !s.InvertVertical })
	case "accel":
		c.updateSensitivity(func(s *pointer.Sensitivity) { s.Acceleration = !s.Acceleration })
	case "frame":
		c.mu.Lock()
		f := c.lastFrame
		c.mu.Unlock()
		fmt.Fprintf(c.out, "[debug] tick=%d yaw=%d pitch=%d velocity=%d flags=0x%08x buttons=%08b\r\n",
			f.Tick, f.Yaw, f.Pitch, f.Velocity, f.Flags, f.Buttons)
	default:
		fmt.Fprintf(c.out, "[debug] unknown command: %s\r\n", parts[0])
	}
}

func (c *Console) handleSensCommand(parts []string) {
	if c.sensitivity == nil {
		fmt.Fprint(c.out, "[debug] sensitivity is read-only\r\n")
		return
	}
	if len(parts) == 1 {
		s := c.sensitivity.Sensitivity()
		fmt.Fprintf(c.out, "[debug] sensitivity h=%.3f v=%.3f invert=%t accel=%t\r\n",
			s.Horizontal, s.Vertical, s.InvertVertical, s.Acceleration)
		return
	}
	if len(parts) != 3 {
		fmt.Fprint(c.out, "[debug] usage: :sens <horizontal> <vertical>\r\n")
		return
	}
	h, err1 := strconv.ParseFloat(parts[1], 64)
	v, err2 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || !config.ValidScale(h) || !config.ValidScale(v) {
		fmt.Fprint(c.out, "[debug] invalid sens args\r\n")
		return
	}
	c.updateSensitivity(func(s *pointer.Sensitivity) {
		s.Horizontal = h
		s.Vertical = v
	})
}

func (c *Console) updateSensitivity(update func(*pointer.Sensitivity)) {
	if c.sensitivity == nil {
		fmt.Fprint(c.out, "[debug] sensitivity is read-only\r\n")
		return
	}
	s := c.sensitivity.Sensitivity()
	update(&s)
	c.sensitivity.Store(s)
	slog.Debug("debug sensitivity updated", "horizontal", s.Horizontal, "vertical", s.Vertical,
		"invert_vertical", s.InvertVertical, "acceleration", s.Acceleration)
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, "[debug] keys:\r\n")
	fmt.Fprint(c.out, "  h/j/k/l or arrows: move 4 counts\r\n")
	fmt.Fprint(c.out, "  H/J/K/L: move 40 counts\r\n")
	fmt.Fprint(c.out, "  1/2/3: toggle primary/middle/secondary button\r\n")
	fmt.Fprint(c.out, "  u/d: wheel up/down\r\n")
	fmt.Fprint(c.out, "  a/z: activate/deactivate, c: recenter\r\n")
	fmt.Fprint(c.out, "  : enter command mode\r\n")
	fmt.Fprint(c.out, "[debug] commands:\r\n")
	fmt.Fprint(c.out, "  :move <dx> <dy>\r\n")
	fmt.Fprint(c.out, "  :sens [<horizontal> <vertical>]\r\n")
	fmt.Fprint(c.out, "  :invert\r\n")
	fmt.Fprint(c.out, "  :accel\r\n")
	fmt.Fprint(c.out, "  :frame\r\n")
	fmt.Fprint(c.out, "  :help\r\n")
}

func (c *Console) statusLine() string {
	c.mu.Lock()
	f := c.lastFrame
	active := c.active
	held := c.held
	c.mu.Unlock()

	wheel := "-"
	switch {
	case f.ScrollUp:
		wheel = "up"
	case f.ScrollDown:
		wheel = "down"
	}
	return fmt.Sprintf(
		"[ACT:%s HELD:%s | YAW:%+.4f PIT:%+.4f | BTN:%s WHEEL:%s | FLAGS:0x%08x]",
		boolLabel(active),
		buttonLabel(held),
		pointer.Fixed(f.Yaw).Float(),
		pointer.Fixed(f.Pitch).Float(),
		buttonLabel(pointer.ButtonSet(f.Buttons)),
		wheel,
		f.Flags,
	)
}

func (c *Console) renderStatusLine() {
	if c.isCommandMode() {
		return
	}
	line := c.statusLine()

	c.mu.Lock()
	defer c.mu.Unlock()
	padding := ""
	if c.statusWidth > len(line) {
		padding = strings.Repeat(" ", c.statusWidth-len(line))
	}
	if len(line) > c.statusWidth {
		c.statusWidth = len(line)
	}
	fmt.Fprintf(c.out, "\r%s%s", line, padding)
}

func (c *Console) isCommandMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandMode
}

func boolLabel(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func buttonLabel(s pointer.ButtonSet) string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for i := 0; i < pointer.NumButtons; i++ {
		if s.Has(i) {
			parts = append(parts, strconv.Itoa(i+1))
		}
	}
	return strings.Join(parts, ",")
}
