//go:build linux

package autostart

import (
	"os"
	"path/filepath"
	"text/template"
)

const desktopEntry = `[Desktop Entry]
Type=Application
Name=Input Overlay
Comment=Input capture host for the overlay
Exec={{.Command}}
Terminal=false
X-GNOME-Autostart-enabled=true
`

var desktopTmpl = template.Must(template.New("desktop").Parse(desktopEntry))

// entryPath follows the XDG autostart directory.
func entryPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "autostart", Label+".desktop"), nil
}

func enable(exe string, args []string) error {
	path, err := entryPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return desktopTmpl.Execute(f, struct{ Command string }{commandLine(exe, args)})
}

func disable() error {
	path, err := entryPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func isEnabled() bool {
	path, err := entryPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
