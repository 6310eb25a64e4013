package hyprland

// Workspace is a snapshot of a Hyprland workspace.
type Workspace struct {
	ID      int
	Name    string
	Monitor string
}

// Window is a snapshot of a Hyprland window/client.
type Window struct {
	Address string
	Title   string
	Class   string
	Floating bool
}

// Monitor is a snapshot of a Hyprland output.
type Monitor struct {
	Name   string
	Active bool
}
