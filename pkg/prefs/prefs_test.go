package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".pantry.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	def := Defaults()
	if def.HorizonDays != 3 {
		t.Fatalf("expected 3 day horizon, got %d", def.HorizonDays)
	}
	if def.SameDayExpired {
		t.Fatalf("same-day-expired must default off")
	}
	if !def.SearchShowsAll {
		t.Fatalf("search-shows-all must default on")
	}
	if !def.ZeroCountConsumes {
		t.Fatalf("zero-count-consumes must default on")
	}
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	p, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Current() != Defaults() {
		t.Fatalf("expected defaults, got %+v", p.Current())
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "expiring-horizon: 1w\nsame-day-expired: true\nsearch-shows-all: false\nzero-count-consumes: false\n")
	chdir(t, dir)

	p, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	v := p.Current()
	if v.HorizonDays != 7 {
		t.Fatalf("expected 7 day horizon, got %d", v.HorizonDays)
	}
	if !v.SameDayExpired || v.SearchShowsAll || v.ZeroCountConsumes {
		t.Fatalf("unexpected values: %+v", v)
	}
}

func TestCurrentFallsBackOnBadHorizon(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "expiring-horizon: garbage\n")
	chdir(t, dir)

	p, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// The broken span is logged and the horizon keeps its last good value.
	if got := p.Current().HorizonDays; got != Defaults().HorizonDays {
		t.Fatalf("expected fallback horizon, got %d", got)
	}
}
