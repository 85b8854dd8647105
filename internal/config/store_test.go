package config

import "testing"

func TestDefaultEngineSettings(t *testing.T) {
	settings := DefaultEngineSettings()
	if settings.HashMB != 64 {
		t.Errorf("expected default hash 64, got %d", settings.HashMB)
	}
	if settings.UseNNUE {
		t.Error("expected NNUE disabled by default")
	}
}

func TestNilStoreDegradesGracefully(t *testing.T) {
	var s *Store

	settings := s.LoadEngineSettings()
	if settings == nil {
		t.Fatal("expected defaults from nil store, got nil")
	}

	s.SaveEngineSettings(settings)
	s.SetUseNNUE(true)

	stats := s.LoadBookStats()
	if stats.ProbesHit != 0 || stats.ProbesMiss != 0 {
		t.Errorf("expected zero stats from nil store, got %+v", stats)
	}

	s.RecordBookProbe(true)
	if err := s.Close(); err != nil {
		t.Errorf("expected nil-store Close to be a no-op, got %v", err)
	}
}

func TestBookStatsHitRate(t *testing.T) {
	stats := &BookStats{ProbesHit: 3, ProbesMiss: 1}
	if got := stats.HitRate(); got != 75 {
		t.Errorf("expected hit rate 75, got %v", got)
	}

	empty := &BookStats{}
	if got := empty.HitRate(); got != 0 {
		t.Errorf("expected hit rate 0 for no probes, got %v", got)
	}
}

func TestRoundTripEngineSettings(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store, err := Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	settings := DefaultEngineSettings()
	settings.HashMB = 256
	settings.UseNNUE = true
	settings.EvalFile = "net.bin"
	store.SaveEngineSettings(settings)

	loaded := store.LoadEngineSettings()
	if loaded.HashMB != 256 || !loaded.UseNNUE || loaded.EvalFile != "net.bin" {
		t.Errorf("round-trip mismatch: %+v", loaded)
	}
}

func TestRecordBookProbeAccumulates(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store, err := Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	store.RecordBookProbe(true)
	store.RecordBookProbe(true)
	store.RecordBookProbe(false)

	stats := store.LoadBookStats()
	if stats.ProbesHit != 2 || stats.ProbesMiss != 1 {
		t.Errorf("expected 2 hits 1 miss, got %+v", stats)
	}
}
