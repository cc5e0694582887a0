package fsatomic

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestConcurrentSaveJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	var wg sync.WaitGroup
	errCh := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := WithLock(path, func() error {
				return SaveJSON(context.TODO(), path, map[string]int{"i": i}, 0)
			})
			if err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("save error: %v", err)
	}
	var v map[string]int
	ok, err := LoadJSON(path, &v)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if _, has := v["i"]; !has {
		t.Fatalf("missing key in %v", v)
	}
}

func TestLoadJSONMissing(t *testing.T) {
	var v map[string]int
	ok, err := LoadJSON(filepath.Join(t.TempDir(), "nope.json"), &v)
	if err != nil || ok {
		t.Fatalf("expected missing file, got ok=%v err=%v", ok, err)
	}
}

func TestLoadJSONRemovesStaleTmp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path+".tmp", []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	var v map[string]int
	_, _ = LoadJSON(path, &v)
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale tmp not removed: %v", err)
	}
}

func TestTryLockExclusive(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "sail.lock")
	unlock, err := TryLock(lock)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := TryLock(lock); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	unlock()
	unlock2, err := TryLock(lock)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	unlock2()
}
