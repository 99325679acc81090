package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForModel(t *testing.T, store *Store, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if store.Current().AIModel == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("AIModel = %q, want %q before deadline", store.Current().AIModel, want)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("model: one\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(Settings{AIModel: "one"})

	// The reload func reads the file's content as the model name.
	reload := func() (Settings, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, err
		}
		return Settings{AIModel: string(data)}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, store, reload) }()

	// Give the watcher time to register before touching the file.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForModel(t, store, "two")

	// Atomic save: write a temp file and rename over the original.
	tmp := filepath.Join(dir, "config.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("three"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	waitForModel(t, store, "three")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not return after cancellation")
	}
}

func TestWatchKeepsPreviousOnFailedReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ok\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(Settings{AIModel: "initial"})
	reload := func() (Settings, error) {
		return Settings{}, errors.New("parse error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, path, store, reload)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Long enough for the debounce and the failed reload to fire.
	time.Sleep(600 * time.Millisecond)

	if got := store.Current().AIModel; got != "initial" {
		t.Errorf("AIModel = %q, want previous snapshot kept after failed reload", got)
	}
}
