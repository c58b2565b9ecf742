package instance

import (
	"sync"
	"testing"
	"time"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/id"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

func testApp(appID string) types.Application {
	return types.Application{
		ID:       appID,
		Name:     appID,
		Path:     "/usr/bin/" + appID,
		Category: types.CategoryNative,
		Enabled:  true,
	}
}

func TestCreate(t *testing.T) {
	r := NewRegistry(logging.NewNop())

	inst := r.Create(testApp("calc"), 4242, "operator", false)

	if !inst.ID.Valid() {
		t.Errorf("Expected valid instance id, got %q", inst.ID)
	}
	if inst.State != types.StateStarting {
		t.Errorf("Expected state starting, got %s", inst.State)
	}
	if inst.PID != 4242 {
		t.Errorf("Expected pid 4242, got %d", inst.PID)
	}
	if inst.LaunchedBy != "operator" {
		t.Errorf("Expected launched_by operator, got %s", inst.LaunchedBy)
	}
	if !inst.IsResponding {
		t.Error("New instance should be presumed responding")
	}
	if inst.Window != nil {
		t.Error("New instance should have no window")
	}
}

func TestCreateUniqueIDs(t *testing.T) {
	r := NewRegistry(logging.NewNop())

	seen := make(map[id.InstanceID]bool)
	for i := 0; i < 50; i++ {
		inst := r.Create(testApp("calc"), int32(i), "operator", false)
		if seen[inst.ID] {
			t.Fatalf("Instance id %s issued twice", inst.ID)
		}
		seen[inst.ID] = true
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry(logging.NewNop())

	created := r.Create(testApp("calc"), 100, "operator", false)

	got, ok := r.Get(created.ID)
	if !ok {
		t.Fatal("Get failed for known instance")
	}
	got.PID = 9999
	got.State = types.StateError

	again, _ := r.Get(created.ID)
	if again.PID != 100 || again.State != types.StateStarting {
		t.Error("Mutating a returned copy must not affect the registry")
	}
}

func TestFindLiveByApp(t *testing.T) {
	r := NewRegistry(logging.NewNop())

	first := r.Create(testApp("calc"), 100, "operator", false)
	r.Create(testApp("notes"), 200, "operator", false)

	found, ok := r.FindLiveByApp("calc")
	if !ok {
		t.Fatal("Expected a live calc instance")
	}
	if found.ID != first.ID {
		t.Errorf("Expected instance %s, got %s", first.ID, found.ID)
	}

	if err := r.UpdateState(first.ID, types.StateTerminated); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	if _, ok := r.FindLiveByApp("calc"); ok {
		t.Error("Terminated instance should not count as live")
	}
}

func TestFindLiveByAppPrefersEarliest(t *testing.T) {
	r := NewRegistry(logging.NewNop())

	a := r.Create(testApp("term"), 100, "operator", false)
	b := r.Create(testApp("term"), 101, "operator", false)

	// Pin start times so the earliest is unambiguous.
	base := time.Now().Add(-time.Minute)
	r.mu.Lock()
	r.instances[a.ID].StartTime = base
	r.instances[b.ID].StartTime = base.Add(time.Second)
	r.mu.Unlock()

	found, ok := r.FindLiveByApp("term")
	if !ok {
		t.Fatal("Expected a live term instance")
	}
	if found.ID != a.ID {
		t.Errorf("Expected the earliest instance %s, got %s", a.ID, found.ID)
	}
}

func TestUpdateStateFollowsTransitionTable(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	inst := r.Create(testApp("calc"), 100, "operator", false)

	chain := []types.ApplicationState{
		types.StateRunning,
		types.StateActive,
		types.StateMinimized,
		types.StateRunning,
		types.StateClosing,
		types.StateTerminated,
	}
	for _, next := range chain {
		if err := r.UpdateState(inst.ID, next); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
	}

	// Terminal states have no outgoing transitions.
	err := r.UpdateState(inst.ID, types.StateRunning)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition out of terminated, got %v", err)
	}
}

func TestUpdateStateRejectsIllegalTransition(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	inst := r.Create(testApp("calc"), 100, "operator", false)

	if err := r.UpdateState(inst.ID, types.StateRunning); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	err := r.UpdateState(inst.ID, types.StateStarting)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}

	var terr *errors.TransitionError
	if !errors.As(err, &terr) {
		t.Fatal("Expected a TransitionError")
	}
	if terr.From != "running" || terr.To != "starting" {
		t.Errorf("Unexpected transition pair %s -> %s", terr.From, terr.To)
	}

	got, _ := r.Get(inst.ID)
	if got.State != types.StateRunning {
		t.Errorf("Rejected transition must not mutate state, got %s", got.State)
	}
}

func TestUpdateStateUnknownInstance(t *testing.T) {
	r := NewRegistry(logging.NewNop())

	err := r.UpdateState(id.InstanceID("inst_missing"), types.StateRunning)
	if !errors.Is(err, errors.ErrInstanceNotFound) {
		t.Errorf("Expected ErrInstanceNotFound, got %v", err)
	}
}

func TestSelfTransitionRefreshesLastUpdate(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	inst := r.Create(testApp("calc"), 100, "operator", false)

	if err := r.UpdateState(inst.ID, types.StateRunning); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	before, _ := r.Get(inst.ID)

	time.Sleep(2 * time.Millisecond)
	if err := r.UpdateState(inst.ID, types.StateRunning); err != nil {
		t.Fatalf("Self-transition should be allowed: %v", err)
	}

	after, _ := r.Get(inst.ID)
	if !after.LastUpdate.After(before.LastUpdate) {
		t.Error("Self-transition should refresh LastUpdate")
	}
	if after.State != types.StateRunning {
		t.Errorf("Self-transition should keep state, got %s", after.State)
	}
}

func TestSetWindowOwnership(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	a := r.Create(testApp("calc"), 100, "operator", false)
	b := r.Create(testApp("notes"), 200, "operator", false)

	w := types.WindowHandle{ID: 7001, Title: "Calculator", PID: 100, Visible: true}
	if err := r.SetWindow(a.ID, w); err != nil {
		t.Fatalf("SetWindow failed: %v", err)
	}

	// The same handle cannot be claimed by another live instance.
	err := r.SetWindow(b.ID, w)
	if !errors.Is(err, errors.ErrInvalidHandle) {
		t.Fatalf("Expected ErrInvalidHandle, got %v", err)
	}
	got, _ := r.Get(b.ID)
	if got.Window != nil {
		t.Error("Rejected binding must not attach the window")
	}

	// The owner may rebind its own window.
	w2 := types.WindowHandle{ID: 7002, Title: "Calculator v2", PID: 100, Visible: true}
	if err := r.SetWindow(a.ID, w2); err != nil {
		t.Fatalf("Rebinding own window failed: %v", err)
	}

	// Once the owner is terminal the handle is free again.
	if err := r.UpdateState(a.ID, types.StateTerminated); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	if err := r.SetWindow(b.ID, w2); err != nil {
		t.Errorf("Handle of a terminated instance should be claimable: %v", err)
	}
}

func TestClearWindow(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	inst := r.Create(testApp("calc"), 100, "operator", false)

	w := types.WindowHandle{ID: 7001, Title: "Calculator", PID: 100, Visible: true}
	if err := r.SetWindow(inst.ID, w); err != nil {
		t.Fatalf("SetWindow failed: %v", err)
	}
	if err := r.ClearWindow(inst.ID); err != nil {
		t.Fatalf("ClearWindow failed: %v", err)
	}

	got, _ := r.Get(inst.ID)
	if got.Window != nil {
		t.Error("ClearWindow should drop the binding")
	}
}

func TestRefresh(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	inst := r.Create(testApp("calc"), 100, "operator", false)

	err := r.Refresh(inst.ID, func(i *types.ApplicationInstance) {
		i.IsResponding = false
		i.IsMinimized = true
		i.MemoryMB = 128.5
	})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	got, _ := r.Get(inst.ID)
	if got.IsResponding || !got.IsMinimized || got.MemoryMB != 128.5 {
		t.Errorf("Refresh mutation lost: %+v", got)
	}

	err = r.Refresh(id.InstanceID("inst_missing"), func(*types.ApplicationInstance) {})
	if !errors.Is(err, errors.ErrInstanceNotFound) {
		t.Errorf("Expected ErrInstanceNotFound, got %v", err)
	}
}

func TestRemoveRequiresTerminalState(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	inst := r.Create(testApp("calc"), 100, "operator", false)

	err := r.Remove(inst.ID)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("Removing a live instance should fail, got %v", err)
	}

	if err := r.UpdateState(inst.ID, types.StateTerminated); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	if err := r.Remove(inst.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, ok := r.Get(inst.ID); ok {
		t.Error("Removed instance should be gone")
	}
	err = r.Remove(inst.ID)
	if !errors.Is(err, errors.ErrInstanceNotFound) {
		t.Errorf("Second remove should report not found, got %v", err)
	}

	replacement := r.Create(testApp("calc"), 101, "operator", false)
	if replacement.ID == inst.ID {
		t.Error("Removed instance id must not be reissued")
	}
}

func TestListOrder(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	a := r.Create(testApp("calc"), 100, "operator", false)
	b := r.Create(testApp("notes"), 200, "operator", false)
	c := r.Create(testApp("term"), 300, "operator", false)

	base := time.Now().Add(-time.Minute)
	r.mu.Lock()
	r.instances[c.ID].StartTime = base
	r.instances[a.ID].StartTime = base.Add(time.Second)
	r.instances[b.ID].StartTime = base.Add(2 * time.Second)
	r.mu.Unlock()

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("Expected 3 instances, got %d", len(list))
	}
	want := []id.InstanceID{c.ID, a.ID, b.ID}
	for i, inst := range list {
		if inst.ID != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], inst.ID)
		}
	}
}

func TestListLive(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	a := r.Create(testApp("calc"), 100, "operator", false)
	b := r.Create(testApp("notes"), 200, "operator", false)

	if err := r.UpdateState(a.ID, types.StateTerminated); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	live := r.ListLive()
	if len(live) != 1 || live[0].ID != b.ID {
		t.Errorf("Expected only %s live, got %+v", b.ID, live)
	}
}

func TestLockerIdentity(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	a := r.Create(testApp("calc"), 100, "operator", false)
	b := r.Create(testApp("notes"), 200, "operator", false)

	if r.Locker(a.ID) != r.Locker(a.ID) {
		t.Error("Same instance should get the same lock")
	}
	if r.Locker(a.ID) == r.Locker(b.ID) {
		t.Error("Different instances should get different locks")
	}
}

func TestStats(t *testing.T) {
	r := NewRegistry(logging.NewNop())
	a := r.Create(testApp("calc"), 100, "operator", false)
	b := r.Create(testApp("notes"), 200, "operator", false)
	r.Create(testApp("term"), 300, "operator", false)

	if err := r.UpdateState(a.ID, types.StateRunning); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateState(a.ID, types.StateActive); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateState(b.ID, types.StateTerminated); err != nil {
		t.Fatal(err)
	}

	stats := r.Stats()
	if stats.Total != 3 {
		t.Errorf("Expected 3 total, got %d", stats.Total)
	}
	if stats.Live != 2 {
		t.Errorf("Expected 2 live, got %d", stats.Live)
	}
	if stats.ByState[types.StateActive] != 1 || stats.ByState[types.StateTerminated] != 1 {
		t.Errorf("Unexpected state counts: %+v", stats.ByState)
	}
	if stats.ActiveID == nil || *stats.ActiveID != a.ID {
		t.Errorf("Expected active id %s, got %v", a.ID, stats.ActiveID)
	}

	counts := r.StateCounts()
	if counts["starting"] != 1 || counts["active"] != 1 || counts["terminated"] != 1 {
		t.Errorf("Unexpected StateCounts: %+v", counts)
	}
}

func TestConcurrentCreates(t *testing.T) {
	r := NewRegistry(logging.NewNop())

	const workers = 20
	const perWorker = 10

	var wg sync.WaitGroup
	ids := make(chan id.InstanceID, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				inst := r.Create(testApp("calc"), int32(w*100+i), "operator", false)
				ids <- inst.ID
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	seen := make(map[id.InstanceID]bool)
	for instID := range ids {
		if seen[instID] {
			t.Fatalf("Instance id %s issued twice", instID)
		}
		seen[instID] = true
	}
	if len(seen) != workers*perWorker {
		t.Errorf("Expected %d instances, got %d", workers*perWorker, len(seen))
	}
}
