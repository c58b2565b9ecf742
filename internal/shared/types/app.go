package types

// Category represents the launch strategy family an application belongs to
type Category string

const (
	CategoryNative   Category = "native"   // Local executable spawned as a child process
	CategoryWeb      Category = "web"      // URL opened in a browser window
	CategoryEmbedded Category = "embedded" // Web app hosted inside the launcher process
	CategoryEmulated Category = "emulated" // Package run inside an external emulator host
)

// Categories lists all valid categories in declaration order
func Categories() []Category {
	return []Category{CategoryNative, CategoryWeb, CategoryEmbedded, CategoryEmulated}
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryNative, CategoryWeb, CategoryEmbedded, CategoryEmulated:
		return true
	}
	return false
}

// AllowsMultipleInstances reports whether the category permits concurrent
// live instances of the same application. All categories are single-instance
// in kiosk operation; per-app AllowMultiple is the only override.
func (c Category) AllowsMultipleInstances() bool {
	return false
}

// Application is a catalog record describing a launchable application.
// Records are immutable once loaded; consumers receive copies.
type Application struct {
	ID             string   `json:"id" yaml:"id" toml:"id"`
	Name           string   `json:"name" yaml:"name" toml:"name"`
	Path           string   `json:"path" yaml:"path" toml:"path"` // Executable path or URL
	Arguments      string   `json:"arguments,omitempty" yaml:"arguments" toml:"arguments"`
	Category       Category `json:"category" yaml:"category" toml:"category"`
	MinimumRole    string   `json:"minimum_role,omitempty" yaml:"minimum_role" toml:"minimum_role"`
	RequiredGroups []string `json:"required_groups,omitempty" yaml:"required_groups" toml:"required_groups"`
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`

	// Window correlation hints
	WindowTitle string `json:"window_title,omitempty" yaml:"window_title" toml:"window_title"` // Expected main-window title; empty derives from Name
	WindowClass string `json:"window_class,omitempty" yaml:"window_class" toml:"window_class"`

	// Launch overrides
	WorkDir         string `json:"work_dir,omitempty" yaml:"work_dir" toml:"work_dir"`
	WindowTimeoutMS int    `json:"window_timeout_ms,omitempty" yaml:"window_timeout_ms" toml:"window_timeout_ms"` // Per-app override of the category default
	AllowMultiple   bool   `json:"allow_multiple,omitempty" yaml:"allow_multiple" toml:"allow_multiple"`
	HostPackage     string `json:"host_package,omitempty" yaml:"host_package" toml:"host_package"` // Emulated package id
	IconURL         string `json:"icon_url,omitempty" yaml:"icon_url" toml:"icon_url"`
}

// ExpectedTitle returns the window title hint, falling back to the display name
func (a Application) ExpectedTitle() string {
	if a.WindowTitle != "" {
		return a.WindowTitle
	}
	return a.Name
}

// SingleInstance reports whether dedup applies to this application
func (a Application) SingleInstance() bool {
	if a.AllowMultiple {
		return false
	}
	return !a.Category.AllowsMultipleInstances()
}
