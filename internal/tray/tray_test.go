package tray

import "testing"

func TestProgressTitle(t *testing.T) {
	tests := []struct {
		name      string
		exercise  string
		reps      int
		target    int
		completed bool
		want      string
	}{
		{"idle", "", 3, 10, false, "No active session"},
		{"in progress", "Bicep curl", 3, 10, false, "Bicep curl: 3/10 reps"},
		{"completed", "Bicep curl", 10, 10, true, "Bicep curl: done (10/10)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := progressTitle(tt.exercise, tt.reps, tt.target, tt.completed); got != tt.want {
				t.Errorf("progressTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTray_StateWithoutMenu(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Error("expected tray to start enabled")
	}

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })
	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("unexpected toggle callbacks %v", got)
	}
	if !tr.IsEnabled() {
		t.Error("expected tray to be enabled after two toggles")
	}

	tr.SetProgress("Knee extension", 2, 12, false)
	if p := tr.Progress(); p != "Knee extension: 2/12 reps" {
		t.Errorf("unexpected progress %q", p)
	}

	called := false
	tr.OnSettings(func() { called = true })
	tr.handleSettings()
	if !called {
		t.Error("expected settings callback")
	}
}
