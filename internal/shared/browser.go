package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openCommands maps GOOS to the launcher that hands a URL to the default browser.
var openCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"windows": {"cmd", "/c", "start"},
}

// OpenBrowser asks the desktop environment to open url in the default
// browser. The command is started, not waited on; callers that need the
// URL visible on headless systems should print it as a fallback.
func OpenBrowser(url string) error {
	launcher, ok := openCommands[runtime.GOOS]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	cmd := exec.Command(launcher[0], append(launcher[1:], url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
