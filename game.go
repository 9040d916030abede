package main

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Game adapts App to ebiten's update/draw loop.
type Game struct {
	app          *App
	input        *InputHandler
	renderer     *Renderer
	lastSnapshot *RenderStateSnapshot
	width        int
	height       int
}

func NewGame(app *App, input *InputHandler, renderer *Renderer) *Game {
	return &Game{app: app, input: input, renderer: renderer}
}

func (g *Game) Update() error {
	if g.app.ShouldQuit() {
		return ebiten.Termination
	}

	g.input.HandleInput()
	g.app.Tick(time.Now())

	if g.app.ShouldQuit() {
		return ebiten.Termination
	}
	return nil
}

// Draw only repaints when something changed; the screen is not cleared
// between frames.
func (g *Game) Draw(screen *ebiten.Image) {
	now := time.Now()
	snapshot := NewRenderStateSnapshot(g.app, now, g.width, g.height)
	if !g.app.NeedsRedraw() && snapshot.Equals(g.lastSnapshot) {
		return
	}

	g.renderer.Draw(screen, now)
	g.app.MarkDrawn()
	g.lastSnapshot = snapshot
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	g.app.Resize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}
