package launcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

func win(id uint64, pid int32, title string) types.WindowHandle {
	return types.WindowHandle{ID: id, PID: pid, Title: title, Visible: true}
}

func TestCorrelateExactInTargetPID(t *testing.T) {
	windows := []types.WindowHandle{
		win(1, 10, "GameX - Loading"),
		win(2, 10, "gamex"),
	}

	w, ok := Correlate(windows, Criteria{PID: 10, Title: "GameX"})
	require.True(t, ok)
	assert.Equal(t, uint64(2), w.ID, "exact match in the target pid beats an earlier partial")
}

func TestCorrelatePartialInTargetPIDBeatsExactElsewhere(t *testing.T) {
	windows := []types.WindowHandle{
		win(1, 20, "GameX"),
		win(2, 10, "GameX - Loading"),
	}

	w, ok := Correlate(windows, Criteria{PID: 10, Title: "GameX"})
	require.True(t, ok)
	assert.Equal(t, uint64(2), w.ID, "a partial hit in the target pid outranks an exact hit in another pid")
	assert.Equal(t, int32(10), w.PID)
}

func TestCorrelateFallsBackToAnyPID(t *testing.T) {
	windows := []types.WindowHandle{
		win(1, 20, "GameX"),
		win(2, 30, "Some GameX Mirror"),
	}

	w, ok := Correlate(windows, Criteria{PID: 10, Title: "GameX"})
	require.True(t, ok)
	assert.Equal(t, uint64(1), w.ID, "exact in any pid comes before partial in any pid")
}

func TestCorrelateWithoutTargetPID(t *testing.T) {
	windows := []types.WindowHandle{
		win(1, 20, "Fleet Console - Chromium"),
		win(2, 30, "Fleet Console"),
	}

	w, ok := Correlate(windows, Criteria{PID: 0, Title: "Fleet Console"})
	require.True(t, ok)
	assert.Equal(t, uint64(2), w.ID)
}

func TestCorrelateSkipsInvisible(t *testing.T) {
	hidden := types.WindowHandle{ID: 1, PID: 10, Title: "GameX", Visible: false}

	_, ok := Correlate([]types.WindowHandle{hidden}, Criteria{PID: 10, Title: "GameX"})
	assert.False(t, ok)
}

func TestCorrelateDenyTitles(t *testing.T) {
	windows := []types.WindowHandle{
		win(1, 10, "GameX Updater"),
		win(2, 20, "GameX"),
	}

	w, ok := Correlate(windows, Criteria{
		PID:        10,
		Title:      "GameX",
		DenyTitles: []string{"updater"},
	})
	require.True(t, ok)
	assert.Equal(t, uint64(2), w.ID, "denylisted windows are excluded before staging")
}

func TestCorrelateDenyClasses(t *testing.T) {
	splash := types.WindowHandle{ID: 1, PID: 10, Title: "GameX", Class: "SplashScreen", Visible: true}

	_, ok := Correlate([]types.WindowHandle{splash}, Criteria{
		PID:         10,
		Title:       "GameX",
		DenyClasses: []string{"splashscreen"},
	})
	assert.False(t, ok)
}

func TestCorrelateClassScopesAnyPIDExactStage(t *testing.T) {
	windows := []types.WindowHandle{
		{ID: 1, PID: 20, Title: "GameX", Class: "Chrome", Visible: true},
		{ID: 2, PID: 30, Title: "GameX", Class: "EmulatorHost", Visible: true},
	}

	w, ok := Correlate(windows, Criteria{PID: 99, Title: "GameX", Class: "EmulatorHost"})
	require.True(t, ok)
	assert.Equal(t, uint64(2), w.ID, "the any-pid exact stage honors the host window class")
}

func TestCorrelateStableFirstPick(t *testing.T) {
	windows := []types.WindowHandle{
		win(7, 10, "GameX"),
		win(8, 10, "GameX"),
	}

	w, ok := Correlate(windows, Criteria{PID: 10, Title: "GameX"})
	require.True(t, ok)
	assert.Equal(t, uint64(7), w.ID, "equal candidates resolve to the first enumerated")
}

func TestCorrelateEmptyTitle(t *testing.T) {
	_, ok := Correlate([]types.WindowHandle{win(1, 10, "GameX")}, Criteria{PID: 10})
	assert.False(t, ok)
}

func TestCorrelateTrimsAndIgnoresCase(t *testing.T) {
	windows := []types.WindowHandle{win(1, 10, "  GAMEX  ")}

	w, ok := Correlate(windows, Criteria{PID: 10, Title: "gamex"})
	require.True(t, ok)
	assert.Equal(t, uint64(1), w.ID)
}
