package main

// commandModeAction opens the ":" prompt instead of running a command.
const commandModeAction = "command_mode"

// ActionDefinition binds keys and mouse buttons to a command line.
type ActionDefinition struct {
	Name         string
	Keys         []string
	MouseActions []string
	Command      string
	Repeat       bool // fires again while the key is held
	Description  string
}

var actionDefinitions = []ActionDefinition{
	{commandModeAction, []string{"Shift+Semicolon"}, nil, "", false, "Enter a command"},
	{"quit", []string{"KeyQ"}, nil, "quit", false, "Quit"},
	{"previous", []string{"BracketLeft", "ArrowLeft"}, []string{"Back"}, "select_rel -1", true, "Previous image"},
	{"next", []string{"BracketRight", "ArrowRight"}, []string{"Forward"}, "select_rel 1", true, "Next image"},
	{"zoom_in", []string{"Equal", "Shift+Equal", "KeyI", "ArrowUp"}, nil, "zoom 1", true, "Zoom in"},
	{"zoom_out", []string{"Minus", "KeyO", "ArrowDown"}, nil, "zoom -1", true, "Zoom out"},
	{"scaling", []string{"KeyS"}, nil, "scaling", false, "Cycle scaling mode"},
	{"rescale", []string{"KeyR"}, []string{"MiddleClick"}, "rescale", false, "Reset scale and position"},
	{"actual", []string{"KeyA"}, nil, "actual", false, "Show at actual size"},
	{"center", []string{"KeyC"}, nil, "center", false, "Center the image"},
	{"scroll_down", []string{"KeyJ"}, nil, "pan 0 -50", true, "Scroll down"},
	{"scroll_up", []string{"KeyK"}, nil, "pan 0 50", true, "Scroll up"},
	{"scroll_left", []string{"KeyH"}, nil, "pan 50 0", true, "Scroll left"},
	{"scroll_right", []string{"KeyL"}, nil, "pan -50 0", true, "Scroll right"},
	{"remove", []string{"KeyX"}, nil, "remove", false, "Remove image from the list"},
	{"fullscreen", []string{"KeyF"}, []string{"DoubleLeftClick"}, "fullscreen", false, "Toggle fullscreen"},
	{"next_frame", []string{"Period"}, nil, "next_frame", true, "Show next animation frame"},
	{"play", []string{"Space"}, nil, "play", false, "Play/pause animation"},
	{"print", []string{"KeyP"}, nil, "print", false, "Print current path to stdout"},
	{"overlay", []string{"KeyD"}, nil, "overlay", false, "Toggle overlay"},
	{"slideshow_longer", []string{"KeyT"}, nil, "slideshow 1000", false, "Slideshow: one second longer"},
	{"slideshow_shorter", []string{"Shift+KeyT"}, nil, "slideshow -1000", false, "Slideshow: one second shorter"},
}

// GetActionCommands returns a map of action names to the command lines they run
func GetActionCommands() map[string]string {
	commands := make(map[string]string)
	for _, action := range actionDefinitions {
		commands[action.Name] = action.Command
	}
	return commands
}

// GetDefaultKeybindings returns a map of action names to their default keybindings
func GetDefaultKeybindings() map[string][]string {
	keybindings := make(map[string][]string)
	for _, action := range actionDefinitions {
		keybindings[action.Name] = append([]string(nil), action.Keys...)
	}
	return keybindings
}

// GetDefaultMousebindings returns a map of action names to their default mouse bindings
func GetDefaultMousebindings() map[string][]string {
	mousebindings := make(map[string][]string)
	for _, action := range actionDefinitions {
		if len(action.MouseActions) > 0 {
			mousebindings[action.Name] = append([]string(nil), action.MouseActions...)
		}
	}
	return mousebindings
}

func repeatableActions() map[string]bool {
	repeat := make(map[string]bool)
	for _, action := range actionDefinitions {
		if action.Repeat {
			repeat[action.Name] = true
		}
	}
	return repeat
}
