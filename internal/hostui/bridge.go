package hostui

// Sender delivers one typed event to the connected frontend. The
// websocket hub satisfies it. Delivery is fire-and-forget.
type Sender interface {
	Send(event string, payload map[string]any)
}

// Bridge implements every host surface by forwarding events to the
// frontend over a Sender.
type Bridge struct {
	sender Sender
}

// NewBridge creates a bridge over the given sender.
func NewBridge(sender Sender) *Bridge {
	return &Bridge{sender: sender}
}

// NewHost returns a Host with every surface backed by the bridge.
func NewHost(sender Sender) Host {
	b := NewBridge(sender)
	return Host{
		Notifier:  b,
		Clipboard: b,
		Terminal:  b,
		Windows:   b,
		Browser:   b,
		Progress:  b,
	}
}

func (b *Bridge) Info(msg string) {
	b.sender.Send("ui-notify", map[string]any{"level": "info", "message": msg})
}

func (b *Bridge) Error(msg string) {
	b.sender.Send("ui-notify", map[string]any{"level": "error", "message": msg})
}

func (b *Bridge) WriteText(text string) error {
	b.sender.Send("ui-clipboard", map[string]any{"text": text})
	return nil
}

func (b *Bridge) Open(name, commandLine string) error {
	b.sender.Send("ui-terminal", map[string]any{"name": name, "command": commandLine})
	return nil
}

func (b *Bridge) OpenRemote(host, path string, newWindow bool) error {
	b.sender.Send("ui-open-window", map[string]any{
		"host":       host,
		"path":       path,
		"new_window": newWindow,
	})
	return nil
}

func (b *Bridge) OpenExternal(url string) error {
	b.sender.Send("ui-open-external", map[string]any{"url": url})
	return nil
}

// Run forwards progress begin/end markers around fn. The frontend owns
// the actual indicator; it is declared non-cancellable there.
func (b *Bridge) Run(title string, fn func()) {
	b.sender.Send("ui-progress", map[string]any{"title": title, "state": "begin"})
	defer b.sender.Send("ui-progress", map[string]any{"title": title, "state": "end"})
	fn()
}
