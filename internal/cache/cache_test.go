package cache

import (
	"testing"
	"time"
)

func TestManager_RegionRoundTrip(t *testing.T) {
	m, err := NewManager(Config{
		TileCacheSizeMB: 8,
		TileTTL:         time.Minute,
		QueryCacheSize:  16,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	key := RegionKey("root-a", 0, 0, 1, 0, 10, 20, 64, 64)
	if _, ok := m.GetRegion(key); ok {
		t.Fatal("expected miss before Set")
	}

	want := []byte("region-bytes")
	if err := m.SetRegion(key, want); err != nil {
		t.Fatalf("SetRegion: %v", err)
	}

	got, ok := m.GetRegion(key)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRegionKey_DistinguishesRootsAndLevels(t *testing.T) {
	a := RegionKey("root-a", 0, 0, 0, 0, 0, 0, 64, 64)
	b := RegionKey("root-b", 0, 0, 0, 0, 0, 0, 64, 64)
	c := RegionKey("root-a", 1, 0, 0, 0, 0, 0, 64, 64)
	if a == b || a == c || b == c {
		t.Fatalf("expected distinct keys, got %q %q %q", a, b, c)
	}
}

func TestManager_QueryRoundTrip(t *testing.T) {
	m, err := NewManager(Config{
		TileCacheSizeMB: 8,
		TileTTL:         time.Minute,
		QueryCacheSize:  16,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if _, ok := m.GetQuery("meta:root-a"); ok {
		t.Fatal("expected miss before Set")
	}
	m.SetQuery("meta:root-a", []byte(`{"sizeX":512}`))
	got, ok := m.GetQuery("meta:root-a")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(got) != `{"sizeX":512}` {
		t.Fatalf("unexpected value: %s", got)
	}
}
