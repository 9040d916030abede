package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeActions struct {
	lines       []string
	commandMode bool
	buf         string
}

func (f *fakeActions) Exec(line string)            { f.lines = append(f.lines, line) }
func (f *fakeActions) EnterCommandMode()           { f.commandMode = true }
func (f *fakeActions) InCommandMode() bool         { return f.commandMode }
func (f *fakeActions) CommandBuffer() string       { return f.buf }
func (f *fakeActions) SetCommandBuffer(s string)   { f.buf = s }
func (f *fakeActions) CompleteCommand()            {}
func (f *fakeActions) SubmitCommand()              { f.commandMode = false }
func (f *fakeActions) CancelCommand()              { f.commandMode = false }
func (f *fakeActions) ZoomAt(x, y, amount float64) {}
func (f *fakeActions) Pan(dx, dy float64)          {}

func TestInputDispatch(t *testing.T) {
	actions := &fakeActions{}
	h := NewInputHandler(actions, nil, nil)

	assert.True(t, h.dispatch("next"))
	assert.True(t, h.dispatch("scroll_down"))
	assert.Equal(t, []string{"select_rel 1", "pan 0 -50"}, actions.lines)

	assert.False(t, h.dispatch("no_such_action"))

	assert.True(t, h.dispatch(commandModeAction))
	assert.True(t, actions.commandMode)
	assert.Len(t, actions.lines, 2, "command mode does not run a command")
}

func TestEveryActionRunsAKnownCommand(t *testing.T) {
	app := newTestViewer(t, testOptions(), "a").App
	for _, def := range actionDefinitions {
		if def.Name == commandModeAction {
			continue
		}
		words := strings.Fields(def.Command)
		if assert.NotEmpty(t, words, def.Name) {
			_, err := app.commands.resolve(words[0], false)
			assert.NoError(t, err, def.Name)
		}
	}
}

func TestTrimLastRune(t *testing.T) {
	assert.Equal(t, "", trimLastRune(""))
	assert.Equal(t, "", trimLastRune("a"))
	assert.Equal(t, "zoo", trimLastRune("zoom"))
	assert.Equal(t, "日本", trimLastRune("日本語"))
}

type fakeRenderState struct {
	RenderState
	message string
}

func (s fakeRenderState) Message(time.Time) string { return s.message }

func TestRenderStateSnapshot(t *testing.T) {
	now := time.Now()
	a := NewRenderStateSnapshot(fakeRenderState{message: "hi"}, now, 800, 600)
	b := NewRenderStateSnapshot(fakeRenderState{message: "hi"}, now, 800, 600)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(nil))
	assert.False(t, a.Equals(NewRenderStateSnapshot(fakeRenderState{}, now, 800, 600)))
	assert.False(t, a.Equals(NewRenderStateSnapshot(fakeRenderState{message: "hi"}, now, 801, 600)))
}
