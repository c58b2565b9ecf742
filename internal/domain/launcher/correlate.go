package launcher

import (
	"strings"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Criteria guides staged window correlation.
type Criteria struct {
	PID         int32    // Target process; 0 skips the pid-scoped stages
	Title       string   // Expected window title
	Class       string   // Host window class for the any-pid exact stage; empty matches all
	DenyTitles  []string // Title substrings of non-content windows
	DenyClasses []string // Class names of non-content windows
}

// correlationStage is one pass of the staged match. Stages run in order and
// the first hit wins; a later stage never overrides an earlier one.
type correlationStage struct {
	pidScoped bool
	exact     bool
}

var correlationStages = []correlationStage{
	{pidScoped: true, exact: true},
	{pidScoped: true, exact: false},
	{pidScoped: false, exact: true},
	{pidScoped: false, exact: false},
}

// Correlate picks the main window for an instance from an enumerated window
// list:
//
//	1. exact title match in the target pid
//	2. partial title match in the target pid
//	3. exact title match in any pid (within Class when given)
//	4. partial title match in any pid
//
// Exact means case-insensitive equality, partial means case-insensitive
// substring. Invisible and denylisted windows never match. Within a stage
// the first enumerated candidate wins, so equal-title windows resolve
// stably.
func Correlate(windows []types.WindowHandle, c Criteria) (types.WindowHandle, bool) {
	want := strings.ToLower(strings.TrimSpace(c.Title))
	if want == "" {
		return types.WindowHandle{}, false
	}

	candidates := make([]types.WindowHandle, 0, len(windows))
	for _, w := range windows {
		if !w.Visible || denied(w, c) {
			continue
		}
		candidates = append(candidates, w)
	}

	for _, stage := range correlationStages {
		if stage.pidScoped && c.PID == 0 {
			continue
		}
		for _, w := range candidates {
			if stage.pidScoped && w.PID != c.PID {
				continue
			}
			if !stage.pidScoped && stage.exact && c.Class != "" && !strings.EqualFold(w.Class, c.Class) {
				continue
			}
			if matchTitle(w.Title, want, stage.exact) {
				return w, true
			}
		}
	}
	return types.WindowHandle{}, false
}

func matchTitle(title, want string, exact bool) bool {
	got := strings.ToLower(strings.TrimSpace(title))
	if exact {
		return got == want
	}
	return strings.Contains(got, want)
}

// denied reports whether the window is excluded from correlation outright
func denied(w types.WindowHandle, c Criteria) bool {
	title := strings.ToLower(w.Title)
	for _, deny := range c.DenyTitles {
		if deny != "" && strings.Contains(title, strings.ToLower(deny)) {
			return true
		}
	}
	for _, deny := range c.DenyClasses {
		if deny != "" && strings.EqualFold(w.Class, deny) {
			return true
		}
	}
	return false
}
