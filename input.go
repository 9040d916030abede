package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// InputHandler handles all keyboard and mouse input processing
type InputHandler struct {
	actions  InputActions
	keys     *KeybindingManager
	mouse    *MousebindingManager
	commands map[string]string
	chars    []rune
}

// NewInputHandler creates a new InputHandler
func NewInputHandler(actions InputActions, keys *KeybindingManager, mouse *MousebindingManager) *InputHandler {
	return &InputHandler{
		actions:  actions,
		keys:     keys,
		mouse:    mouse,
		commands: GetActionCommands(),
	}
}

// HandleInput processes all input for the current frame
// Returns true if any input was processed, false otherwise
func (h *InputHandler) HandleInput() bool {
	if h.actions.InCommandMode() {
		return h.handleCommandMode()
	}

	inputProcessed := false
	for _, action := range h.keys.PressedActions() {
		inputProcessed = h.dispatch(action) || inputProcessed
		if h.actions.InCommandMode() {
			return true
		}
	}
	for _, action := range h.mouse.PressedActions() {
		inputProcessed = h.dispatch(action) || inputProcessed
	}

	inputProcessed = h.handleWheel() || inputProcessed
	inputProcessed = h.handleDrag() || inputProcessed
	return inputProcessed
}

// dispatch runs the command bound to action.
func (h *InputHandler) dispatch(action string) bool {
	if action == commandModeAction {
		h.actions.EnterCommandMode()
		return true
	}
	line, ok := h.commands[action]
	if !ok || line == "" {
		return false
	}
	h.actions.Exec(line)
	return true
}

func (h *InputHandler) handleWheel() bool {
	amount := h.mouse.WheelZoom()
	if amount == 0 {
		return false
	}
	x, y := ebiten.CursorPosition()
	h.actions.ZoomAt(float64(x), float64(y), amount)
	return true
}

func (h *InputHandler) handleDrag() bool {
	dx, dy := h.mouse.DragDelta()
	if dx == 0 && dy == 0 {
		return false
	}
	h.actions.Pan(dx, dy)
	return true
}

func (h *InputHandler) handleCommandMode() bool {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		h.actions.CancelCommand()
		return true
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
		h.actions.SubmitCommand()
		return true
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		h.actions.CompleteCommand()
		return true
	}

	if keyFires(inpututil.KeyPressDuration(ebiten.KeyBackspace), true) {
		h.actions.SetCommandBuffer(trimLastRune(h.actions.CommandBuffer()))
		return true
	}

	h.chars = ebiten.AppendInputChars(h.chars[:0])
	if len(h.chars) > 0 {
		h.actions.SetCommandBuffer(h.actions.CommandBuffer() + string(h.chars))
		return true
	}
	return false
}

func trimLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
