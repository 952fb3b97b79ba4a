// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startWatcher(t *testing.T, roots []string, opts Options) (*Watcher, <-chan []string) {
	t.Helper()
	batches := make(chan []string, 8)
	w, err := New(roots, opts, func(paths []string) { batches <- paths })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w, batches
}

func nextBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatalf("no change reported")
		return nil
	}
}

func TestWatcher_ReportsMatchingChange(t *testing.T) {
	root := t.TempDir()
	_, batches := startWatcher(t, []string{root}, Options{Extensions: []string{".py"}, Debounce: 50 * time.Millisecond})

	target := filepath.Join(root, "main.py")
	require.NoError(t, os.WriteFile(target, []byte("print(1)\n"), 0o644))

	require.Contains(t, nextBatch(t, batches), target)
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	w, batches := startWatcher(t, []string{root}, Options{Extensions: []string{".py"}, Debounce: 50 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	select {
	case b := <-batches:
		t.Fatalf("unexpected batch %v", b)
	case <-time.After(300 * time.Millisecond):
	}
	require.Zero(t, w.Stats().Events)
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	root := t.TempDir()
	w, batches := startWatcher(t, []string{root}, Options{Extensions: []string{".py"}, Debounce: 200 * time.Millisecond})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte{byte('0' + i)}, 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	batch := nextBatch(t, batches)
	require.Equal(t, []string{filepath.Join(root, "a.py")}, batch)
	select {
	case b := <-batches:
		t.Fatalf("burst produced a second batch %v", b)
	case <-time.After(400 * time.Millisecond):
	}
	require.Equal(t, 1, w.Stats().Batches)
}

func TestWatcher_FollowsNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	_, batches := startWatcher(t, []string{root}, Options{Extensions: []string{".py"}, Debounce: 50 * time.Millisecond})

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// let the watcher register the new directory
	time.Sleep(150 * time.Millisecond)

	target := filepath.Join(sub, "mod.py")
	require.NoError(t, os.WriteFile(target, []byte("x = 1\n"), 0o644))

	require.Eventually(t, func() bool {
		select {
		case b := <-batches:
			for _, p := range b {
				if p == target {
					return true
				}
			}
		default:
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_ReportsFilesOfFreshPackage(t *testing.T) {
	root := t.TempDir()
	_, batches := startWatcher(t, []string{root}, Options{Extensions: []string{".py"}, Debounce: 30 * time.Millisecond})

	for i := 0; i < 5; i++ {
		pkg := filepath.Join(root, "routes"+strconv.Itoa(i))
		want := map[string]bool{
			filepath.Join(pkg, "__init__.py"):    false,
			filepath.Join(pkg, "v1", "users.py"): false,
		}
		require.NoError(t, os.MkdirAll(filepath.Join(pkg, "v1"), 0o755))
		for path := range want {
			require.NoError(t, os.WriteFile(path, nil, 0o644))
		}

		require.Eventually(t, func() bool {
			select {
			case b := <-batches:
				for _, p := range b {
					if _, ok := want[p]; ok {
						want[p] = true
					}
				}
			default:
			}
			for _, seen := range want {
				if !seen {
					return false
				}
			}
			return true
		}, 5*time.Second, 10*time.Millisecond, "package %d: %v", i, want)
	}
}

func TestWatcher_SkipsConfiguredDirectories(t *testing.T) {
	root := t.TempDir()
	venv := filepath.Join(root, "venv")
	require.NoError(t, os.Mkdir(venv, 0o755))
	_, batches := startWatcher(t, []string{root}, Options{Extensions: []string{".py"}, Debounce: 50 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(venv, "site.py"), []byte("x"), 0o644))

	select {
	case b := <-batches:
		t.Fatalf("change inside skipped dir reported: %v", b)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StartFailsWithoutRoots(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "missing")}, Options{}, nil)
	require.NoError(t, err)
	require.Error(t, w.Start(context.Background()))
	w.Stop()

	_, err = New(nil, Options{}, nil)
	require.Error(t, err)
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New([]string{root}, Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))

	cancel()
	w.Stop()
}
