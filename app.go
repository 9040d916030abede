package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// maxFrameStep caps how much animation time a single tick may consume, so a
// suspended process does not fast-forward through a GIF on wake up.
const maxFrameStep = 100 * time.Millisecond

// Display is the window side of the viewer.
type Display interface {
	SetTitle(title string)
	SetFullscreen(fullscreen bool)
	// SetImage uploads bmp's pixels. bmp may be released once it returns.
	// A nil bmp clears the image.
	SetImage(bmp *Bitmap)
}

// PathSource delivers paths that arrive after startup. Poll must not block;
// open is false once no more paths will come.
type PathSource interface {
	Poll() (paths []string, open bool)
}

// Options are the settings the viewer runs with, from config and flags.
type Options struct {
	WindowWidth      int
	WindowHeight     int
	Fullscreen       bool
	Recursive        bool
	Scaling          ScalingMode
	NearestNeighbour bool
	Overlay          bool
	Cycle            bool
	StartAt          string
	Background       Background
	Font             FontSpec
	Slideshow        time.Duration
	ZoomStep         float64
}

// App ties navigation, loading and the viewport together. Every method runs
// on the main goroutine.
type App struct {
	opts     Options
	nav      *Navigator
	loader   *Loader
	view     *Viewport
	commands *CommandEngine[*App]
	display  Display
	stream   PathSource
	out      io.Writer

	stdinData []byte

	scaling     ScalingMode
	overlay     bool
	quit        bool
	needRedraw  bool
	needRescale bool
	loading     bool
	hasImage    bool

	slideshow        time.Duration
	slideshowElapsed time.Duration
	lastTick         time.Time

	winW, winH     int
	imageW, imageH int

	commandMode bool
	commandBuf  string
	message     string
	messageTime time.Time
}

func NewApp(opts Options, nav *Navigator, loader *Loader, display Display) *App {
	a := &App{
		opts:       opts,
		nav:        nav,
		loader:     loader,
		view:       NewViewport(opts.ZoomStep),
		commands:   NewCommandEngine[*App](),
		display:    display,
		out:        os.Stdout,
		scaling:    opts.Scaling,
		overlay:    opts.Overlay,
		slideshow:  opts.Slideshow,
		winW:       opts.WindowWidth,
		winH:       opts.WindowHeight,
		needRedraw: true,
	}
	a.registerCommands()
	if opts.Fullscreen {
		a.view.ToggleFullscreen()
		display.SetFullscreen(true)
	}
	return a
}

// SetPathStream makes the app keep reading paths from s until it closes.
// While it is open an empty list does not end the program.
func (a *App) SetPathStream(s PathSource) {
	a.stream = s
}

// SetStdinData supplies the bytes of the image named "-".
func (a *App) SetStdinData(data []byte) {
	a.stdinData = data
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}

func (a *App) registerCommands() {
	c := a.commands
	mustRegister(c.Register("quit", cmdQuit))
	mustRegister(c.Register("pan", cmdPan))
	mustRegister(c.Register("select_rel", cmdSelectRel))
	mustRegister(c.Register("select_abs", cmdSelectAbs))
	mustRegister(c.Register("zoom", cmdZoom))
	mustRegister(c.Register("remove", cmdRemove))
	mustRegister(c.Register("fullscreen", cmdFullscreen))
	mustRegister(c.Register("overlay", cmdOverlay))
	mustRegister(c.Register("scaling", cmdScaling))
	mustRegister(c.Register("rescale", cmdRescale))
	mustRegister(c.Register("actual", cmdActual))
	mustRegister(c.Register("center", cmdCenter))
	mustRegister(c.Register("next_frame", cmdNextFrame))
	mustRegister(c.Register("play", cmdPlay))
	mustRegister(c.Register("print", cmdPrint))
	mustRegister(c.Register("slideshow", cmdSlideshow))

	mustRegister(c.Alias("q", "quit"))
	mustRegister(c.Alias("next", "select_rel 1"))
	mustRegister(c.Alias("previous", "select_rel -1"))
	mustRegister(c.Alias("n", "select_rel 1"))
	mustRegister(c.Alias("p", "select_rel -1"))
}

func cmdQuit(a *App, _ []string) {
	a.quit = true
}

func cmdPan(a *App, args []string) {
	if len(args) != 3 {
		return
	}
	dx, errX := strconv.ParseFloat(args[1], 64)
	dy, errY := strconv.ParseFloat(args[2], 64)
	if errX != nil || errY != nil || !finite(dx) || !finite(dy) {
		return
	}
	a.view.Pan(dx, dy)
}

func cmdSelectRel(a *App, args []string) {
	if len(args) != 2 {
		return
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return
	}
	a.nav.SelectRel(delta)
	a.slideshowElapsed = 0
}

// select_abs takes a 1-based position.
func cmdSelectAbs(a *App, args []string) {
	if len(args) != 2 {
		return
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return
	}
	if a.nav.SelectIndex(n - 1) {
		a.slideshowElapsed = 0
	}
}

func cmdZoom(a *App, args []string) {
	if len(args) != 2 {
		return
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || !finite(amount) {
		return
	}
	a.view.Zoom(float64(a.winW)/2, float64(a.winH)/2, amount)
}

func cmdRemove(a *App, _ []string) {
	ref, ok := a.nav.Selection()
	if !ok {
		return
	}
	a.nav.Remove(ref.Path)
	a.slideshowElapsed = 0
}

func cmdFullscreen(a *App, _ []string) {
	a.view.ToggleFullscreen()
	a.display.SetFullscreen(a.view.Fullscreen())
}

func cmdOverlay(a *App, _ []string) {
	a.overlay = !a.overlay
	a.needRedraw = true
}

func cmdScaling(a *App, _ []string) {
	a.scaling = a.scaling.Next()
	a.needRescale = true
	a.showMessage(a.scaling.String())
}

func cmdRescale(a *App, _ []string) {
	a.needRescale = true
}

func cmdActual(a *App, _ []string) {
	a.view.ScaleToActual(a.imageW, a.imageH, a.winW, a.winH)
}

func cmdCenter(a *App, _ []string) {
	a.view.Center(a.imageW, a.imageH, a.winW, a.winH)
}

func cmdNextFrame(a *App, _ []string) {
	a.loader.LoadNextFrame()
}

func cmdPlay(a *App, _ []string) {
	a.view.TogglePlaying()
}

func cmdPrint(a *App, _ []string) {
	if ref, ok := a.nav.Selection(); ok {
		fmt.Fprintln(a.out, ref.Path)
	}
}

// slideshow adjusts the per-image duration by a signed number of
// milliseconds; it never goes below zero, which turns the slideshow off.
func cmdSlideshow(a *App, args []string) {
	if len(args) != 2 {
		return
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return
	}
	next := a.slideshow + time.Duration(delta)*time.Millisecond
	if next < 0 {
		return
	}
	a.slideshow = next
	a.slideshowElapsed = 0
	a.needRedraw = true
}

// Exec runs a command line. Failures are logged and shown, never fatal.
func (a *App) Exec(line string) {
	if err := a.commands.Exec(line, a); err != nil {
		logger.Warn("command failed", "line", line, "err", err)
		a.showMessage(err.Error())
	}
}

// Start selects the starting image, given as a path in the list or a
// 1-based number, and starts the tick clock.
func (a *App) Start(now time.Time) {
	a.lastTick = now
	if a.opts.StartAt == "" {
		return
	}
	idx := a.nav.Find(a.opts.StartAt)
	if idx == -1 {
		if n, err := strconv.Atoi(a.opts.StartAt); err == nil {
			idx = n - 1
		}
	}
	if idx < 0 || !a.nav.SelectIndex(idx) {
		logger.Warn("invalid starting image", "start", a.opts.StartAt)
	}
}

// Tick advances the viewer by one frame. Input for the frame must already
// have been dispatched.
func (a *App) Tick(now time.Time) {
	if a.quit {
		return
	}

	for {
		path, ok := a.loader.TakeError()
		if !ok {
			break
		}
		a.nav.Remove(path)
		if path == stdinPath {
			a.stdinData = nil
			logger.Warn("failed to load image from stdin")
		}
		a.showMessage("cannot load " + filepath.Base(path))
	}

	if !a.opts.Cycle && a.nav.Wrapped() {
		debugLog("reached the end of the list")
		a.quit = true
		return
	}

	if a.nav.PollChanged() {
		a.loadSelection()
		if a.quit {
			return
		}
	}

	if f, ok := a.loader.TakeImage(); ok {
		a.display.SetImage(f.Bitmap)
		a.imageW, a.imageH = f.Bitmap.Width(), f.Bitmap.Height()
		f.Bitmap.Release()
		a.loading = false
		a.hasImage = true
		a.view.Invalidate()
		if f.NewImage {
			a.needRescale = true
		}
	}

	if a.needRescale {
		a.needRescale = false
		a.rescale()
	}

	dt := now.Sub(a.lastTick)
	if dt < 0 {
		dt = 0
	}
	a.lastTick = now

	if a.view.Playing() {
		a.loader.AdvanceTime(min(dt, maxFrameStep))
	}

	if a.slideshow > 0 {
		a.slideshowElapsed += dt
		a.needRedraw = true
		if a.slideshowElapsed >= a.slideshow {
			a.nav.SelectRel(1)
			a.slideshowElapsed = 0
		}
	}

	if a.view.NeedsRedraw() {
		a.needRedraw = true
	}
	if a.needRedraw {
		a.display.SetTitle(a.Title())
	}

	a.pollStream()
}

func (a *App) loadSelection() {
	ref, ok := a.nav.Selection()
	if !ok {
		a.hasImage = false
		a.loading = false
		a.display.SetImage(nil)
		if a.stream == nil {
			logger.Info("No input files left. Exiting.")
			a.quit = true
		}
		return
	}

	a.loading = true
	a.display.SetTitle(a.Title())

	var data []byte
	if ref.IsStdin() {
		data = a.stdinData
	}
	a.loader.Load(ref, data)
	a.view.SetPlaying(true)
}

func (a *App) rescale() {
	if a.scaling == ScaleActual ||
		(a.scaling == ScaleShrink && a.winW > a.imageW && a.winH > a.imageH) {
		a.view.ScaleToActual(a.imageW, a.imageH, a.winW, a.winH)
	} else {
		a.view.ScaleToWindow(a.imageW, a.imageH, a.winW, a.winH)
	}
}

func (a *App) pollStream() {
	if a.stream == nil {
		return
	}
	paths, open := a.stream.Poll()
	for _, p := range paths {
		a.nav.Add(p, a.opts.Recursive)
		a.needRedraw = true
	}
	if !open {
		logger.Info("done with stdin")
		a.stream = nil
		if a.nav.Len() == 0 {
			a.quit = true
		}
	}
}

// Resize records a new window size; the image is refitted on the next tick.
func (a *App) Resize(w, h int) {
	if w == a.winW && h == a.winH {
		return
	}
	a.winW, a.winH = w, h
	a.needRescale = true
	a.needRedraw = true
}

// Title is the window title, e.g. "ivy - [2/5] [640x480] [100.00%] a.png [scale to fit]".
func (a *App) Title() string {
	return "ivy - " + a.status()
}

func (a *App) status() string {
	ref, ok := a.nav.Selection()
	if !ok {
		return "[0/0]"
	}
	pos := fmt.Sprintf("[%d/%d]", a.nav.Index()+1, a.nav.Len())
	if a.loading || !a.hasImage {
		return fmt.Sprintf("%s [LOADING] %s [%s]", pos, ref.Path, a.scaling)
	}
	s := fmt.Sprintf("%s [%dx%d] [%.2f%%] %s [%s]",
		pos, a.imageW, a.imageH, 100*a.view.Scale(), ref.Path, a.scaling)
	if a.slideshow >= time.Second {
		s += fmt.Sprintf(" [%d/%ds]", int(a.slideshowElapsed/time.Second)+1, int(a.slideshow/time.Second))
	}
	return s
}

// OverlayText is the status line drawn over the image when the overlay is on.
func (a *App) OverlayText() string {
	return a.status()
}

func (a *App) showMessage(msg string) {
	a.message = msg
	a.messageTime = time.Now()
	a.needRedraw = true
}

// Message returns the transient message, or "" once it has expired.
func (a *App) Message(now time.Time) string {
	if a.message == "" || now.Sub(a.messageTime) >= overlayMessageDuration {
		return ""
	}
	return a.message
}

func (a *App) EnterCommandMode() {
	a.commandMode = true
	a.commandBuf = ""
	a.needRedraw = true
}

func (a *App) InCommandMode() bool   { return a.commandMode }
func (a *App) CommandBuffer() string { return a.commandBuf }

func (a *App) SetCommandBuffer(s string) {
	a.commandBuf = s
	a.needRedraw = true
}

// CompleteCommand extends the command name being typed to the longest prefix
// shared by every command and alias it matches. A unique match also gets the
// separating space.
func (a *App) CompleteCommand() {
	word := a.commandBuf
	if strings.ContainsAny(word, " \t") {
		return
	}
	var matches []string
	for _, name := range a.commands.Names() {
		if strings.HasPrefix(name, word) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return
	}
	prefix := matches[0]
	for _, m := range matches[1:] {
		for !strings.HasPrefix(m, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if len(matches) == 1 {
		prefix += " "
	}
	a.SetCommandBuffer(prefix)
}

// SubmitCommand leaves command mode and runs what was typed.
func (a *App) SubmitCommand() {
	line := a.commandBuf
	a.CancelCommand()
	a.Exec(line)
}

func (a *App) CancelCommand() {
	a.commandMode = false
	a.commandBuf = ""
	a.needRedraw = true
}

// ZoomAt zooms around a window position, typically the mouse cursor.
func (a *App) ZoomAt(x, y, direction float64) {
	a.view.Zoom(x, y, direction)
}

func (a *App) Pan(dx, dy float64) {
	a.view.Pan(dx, dy)
}

func (a *App) NeedsRedraw() bool {
	return a.needRedraw || a.view.NeedsRedraw()
}

func (a *App) MarkDrawn() {
	a.needRedraw = false
	a.view.MarkDrawn()
}

func (a *App) ShouldQuit() bool { return a.quit }

func (a *App) Close() {
	a.loader.Close()
}

func (a *App) HasImage() bool                   { return a.hasImage }
func (a *App) ImageSize() (int, int)            { return a.imageW, a.imageH }
func (a *App) ViewOffset() (float64, float64)   { return a.view.Offset() }
func (a *App) ViewScale() float64               { return a.view.Scale() }
func (a *App) OverlayEnabled() bool             { return a.overlay }
func (a *App) Background() Background           { return a.opts.Background }
func (a *App) NearestNeighbour() bool           { return a.opts.NearestNeighbour }
func (a *App) Scaling() ScalingMode             { return a.scaling }
func (a *App) SlideshowDuration() time.Duration { return a.slideshow }
func (a *App) Navigator() *Navigator            { return a.nav }
func (a *App) Viewport() *Viewport              { return a.view }
