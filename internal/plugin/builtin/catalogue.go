package builtin

import (
	"path/filepath"
	"runtime"

	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
)

// Names of the built-in plugins.
const (
	HomebrewBrewfile  = "homebrew_brewfile"
	NPMGlobalPackages = "npm_global_packages"
	NPMConfig         = "npm_config"
	VSCodeExtensions  = "vscode_extensions"
	VSCodeSettings    = "vscode_settings"
	VSCodeKeybindings = "vscode_keybindings"
	CursorExtensions  = "cursor_extensions"
	CursorSettings    = "cursor_settings"
	CursorKeybindings = "cursor_keybindings"
	StaticFilesName   = "static_files"
)

// Catalogue returns the built-in plugins keyed by name, configured from cfg.
func Catalogue(cfg *config.Config) map[string]plugin.Plugin {
	// settings fills in outputFile and targetPath unless the user
	// configured them.
	settings := func(name, targetPath, outputFile string) plugin.Base {
		s := cfg.PluginSettings(name)
		if s.OutputFile == "" {
			s.OutputFile = outputFile
		}
		if s.TargetPath == "" {
			s.TargetPath = targetPath
		}
		return plugin.Base{Settings: s}
	}
	vscode := editorUserDir("Code")
	cursor := editorUserDir("Cursor")

	return map[string]plugin.Plugin{
		HomebrewBrewfile: &Command{
			Base:        settings(HomebrewBrewfile, "", "Brewfile"),
			Desc:        "Captures installed Homebrew formulae, casks and taps as a Brewfile",
			Line:        "brew bundle dump --file=-",
			RestoreName: "Brewfile",
		},
		NPMGlobalPackages: &Command{
			Base: settings(NPMGlobalPackages, "", "npm_global_packages.json"),
			Desc: "Captures globally installed npm packages",
			Line: "npm list -g --depth=0 --json",
		},
		VSCodeExtensions: &Command{
			Base: settings(VSCodeExtensions, "vscode", "extensions.txt"),
			Desc: "Captures installed VSCode extensions with versions",
			Line: "code --list-extensions --show-versions",
		},
		NPMConfig: &File{
			Base: settings(NPMConfig, "", "npmrc"),
			Desc: "Captures the user npm configuration (.npmrc)",
			Path: "~/.npmrc",
		},
		VSCodeSettings: &File{
			Base: settings(VSCodeSettings, "vscode", "settings.json"),
			Desc: "Captures VSCode user settings",
			Path: filepath.Join(vscode, "settings.json"),
		},
		VSCodeKeybindings: &File{
			Base: settings(VSCodeKeybindings, "vscode", "keybindings.json"),
			Desc: "Captures VSCode keybindings",
			Path: filepath.Join(vscode, "keybindings.json"),
		},
		CursorExtensions: &Command{
			Base:        settings(CursorExtensions, "cursor", "extensions.txt"),
			Desc:        "Captures installed Cursor extensions with versions",
			Line:        "cursor --list-extensions --show-versions",
			RestoreName: "cursor_extensions.txt",
		},
		CursorSettings: &File{
			Base: settings(CursorSettings, "cursor", "settings.json"),
			Desc: "Captures Cursor user settings",
			Path: filepath.Join(cursor, "settings.json"),
		},
		CursorKeybindings: &File{
			Base: settings(CursorKeybindings, "cursor", "keybindings.json"),
			Desc: "Captures Cursor keybindings",
			Path: filepath.Join(cursor, "keybindings.json"),
		},
		StaticFilesName: &StaticFiles{
			Base:   plugin.Base{Settings: cfg.PluginSettings(StaticFilesName)},
			Files:  cfg.StaticFiles.Files,
			Ignore: cfg.StaticFiles.Ignore,
		},
	}
}

// Register adds every built-in plugin to reg.
func Register(reg *plugin.Registry, cfg *config.Config) error {
	for name, p := range Catalogue(cfg) {
		if err := reg.Register(name, p); err != nil {
			return err
		}
	}
	return nil
}

// editorUserDir returns the user settings directory of a VSCode-family
// editor ("Code", "Cursor").
func editorUserDir(app string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(paths.Home(), "Library", "Application Support", app, "User")
	case "windows":
		return filepath.Join(paths.Home(), "AppData", "Roaming", app, "User")
	default:
		return filepath.Join(paths.ConfigHome(), app, "User")
	}
}
