package dispatch

import (
	"path/filepath"
	"strings"
)

// Handler returns the commands that run the file at path on goos, in
// order. A nil result means the extension is not runnable there and the
// OS default handler is used instead.
type Handler func(path, goos string) [][]string

func interpreter(name string) Handler {
	return func(path, _ string) [][]string {
		return [][]string{{name, path}}
	}
}

// Handlers maps a lower-cased file extension to how it is run.
var Handlers = map[string]Handler{
	".py":  interpreter("python3"),
	".sh":  interpreter("bash"),
	".js":  interpreter("node"),
	".rb":  interpreter("ruby"),
	".php": interpreter("php"),
	".pl":  interpreter("perl"),
	".go": func(path, _ string) [][]string {
		return [][]string{{"go", "run", path}}
	},
	".ts": func(path, _ string) [][]string {
		return [][]string{{"npx", "tsx", path}}
	},
	".scpt": func(path, goos string) [][]string {
		if goos != "darwin" {
			return nil
		}
		return [][]string{{"osascript", path}}
	},
	".html": openWithDefault,
	".htm":  openWithDefault,
	".java": func(path, _ string) [][]string {
		class := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return [][]string{
			{"javac", path},
			{"java", "-cp", filepath.Dir(path), class},
		}
	},
}

func openWithDefault(path, goos string) [][]string {
	return [][]string{DefaultOpen(path, goos)}
}

// DefaultOpen returns the command that opens path with the desktop's
// default application.
func DefaultOpen(path, goos string) []string {
	switch goos {
	case "darwin":
		return []string{"open", path}
	case "windows":
		return []string{"cmd", "/c", "start", "", path}
	default:
		return []string{"xdg-open", path}
	}
}

// CommandsFor returns the commands that run path on goos and whether a
// specific handler matched.
func CommandsFor(path, goos string) ([][]string, bool) {
	if h, ok := Handlers[strings.ToLower(filepath.Ext(path))]; ok {
		if cmds := h(path, goos); cmds != nil {
			return cmds, true
		}
	}
	return [][]string{DefaultOpen(path, goos)}, false
}

// scriptExtensions are made executable as soon as they are written.
var scriptExtensions = map[string]bool{
	".sh":   true,
	".bash": true,
	".zsh":  true,
}

func isScript(path string) bool {
	return scriptExtensions[strings.ToLower(filepath.Ext(path))]
}
