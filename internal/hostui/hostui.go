// Package hostui abstracts the IDE surfaces the explorer talks back to:
// notifications, clipboard, terminals, editor windows, and the external
// browser. The production implementation forwards each call as an event
// to the connected frontend; tests substitute recorders.
package hostui

// Notifier surfaces user-visible messages.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// Clipboard writes to the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// Terminal opens a terminal and types a command line into it.
type Terminal interface {
	Open(name, commandLine string) error
}

// Windows opens editor windows attached to a remote host. An empty path
// opens the host's default workspace; newWindow false reuses the
// current window.
type Windows interface {
	OpenRemote(host, path string, newWindow bool) error
}

// Browser opens a URL in the user's external browser.
type Browser interface {
	OpenExternal(url string) error
}

// Progress runs fn under a user-visible, non-cancellable progress
// indicator with the given title.
type Progress interface {
	Run(title string, fn func())
}

// Host bundles every surface the explorer needs.
type Host struct {
	Notifier  Notifier
	Clipboard Clipboard
	Terminal  Terminal
	Windows   Windows
	Browser   Browser
	Progress  Progress
}
