/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package hookfile provides file-based logging hooks for logrus.
// This file handles log file aggregation and rotation functionality.
// It manages multiple writers to the same log file efficiently.
package hookfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	libatm "github.com/jlmuir/ca-go/atomic"
)

// fileAgg represents an aggregated file writer with reference counting.
// It manages a single log file that can be shared by multiple loggers, and
// runs a background watcher that detects external rotation (e.g. logrotate)
// and reopens the file in place.
type fileAgg struct {
	i *atomic.Int64
	m sync.Mutex

	r *os.Root
	f *os.File

	p  string
	fl int
	fm os.FileMode
	cp bool

	cancel context.CancelFunc
}

// Global map to manage file aggregators by file path
// Uses atomic operations for thread-safe access
var (
	// agg is a thread-safe map that maintains a collection of file aggregators
	// The key is the file path, and the value is the file aggregator instance
	agg = libatm.NewMapTyped[string, *fileAgg]()
)

// init initializes the package and sets up a finalizer to clean up resources
// when the program exits. This ensures all log files are properly closed.
func init() {
	runtime.SetFinalizer(agg, func(a libatm.MapTyped[string, *fileAgg]) {
		a.Range(func(k string, v *fileAgg) bool {
			if v != nil {
				v.close()
			}
			return true
		})
	})
}

// setAgg retrieves or creates a file aggregator for the given file path.
// If an aggregator already exists for the path, its reference count is incremented.
//
// Parameters:
//   - k: The file path to aggregate writes to
//   - m: The file mode to use when creating new files
//   - cre: Whether to create the file if it doesn't exist (enables O_CREATE flag)
//
// Returns:
//   - io.Writer: A writer that writes to the aggregated file
//   - error: Any error that occurred while creating or accessing the file
//
// The function is thread-safe and handles concurrent access to the same file.
func setAgg(k string, m os.FileMode, cre bool) (io.Writer, error) {
	i, l := agg.Load(k)

	if l && i != nil {
		i.i.Add(1)
		agg.Store(k, i)
		return i, nil
	}

	var e error
	i, e = newAgg(k, m, cre)

	if e != nil {
		return nil, e
	}

	agg.Store(k, i)
	return i, nil
}

// delAgg decreases the reference count for the file aggregator at the given path.
// If the reference count reaches zero, the file and its resources are closed and removed.
//
// Parameters:
//   - k: The file path whose aggregator's reference count should be decremented
//
// This function is thread-safe and ensures proper resource cleanup.
func delAgg(k string) {
	i, _ := agg.Load(k)
	if i == nil {
		return
	}

	if i.i.Add(-1) > 0 {
		agg.Store(k, i)
	} else {
		agg.Delete(k)
		i.close()
	}
}

// newAgg creates a new file aggregator for the specified file path.
// It opens the file in append mode and starts a rotation watcher goroutine.
//
// Parameters:
//   - p: The file path to create the aggregator for
//   - m: The file mode to use when creating the file
//   - cre: Whether to create the file if it doesn't exist (enables O_CREATE flag)
//
// Returns:
//   - *fileAgg: The newly created file aggregator
//   - error: Any error that occurred during file operations
func newAgg(p string, m os.FileMode, cre bool) (*fileAgg, error) {
	fl := os.O_WRONLY | os.O_APPEND
	if cre {
		fl = fl | os.O_CREATE
	}

	i := &fileAgg{
		i:  new(atomic.Int64),
		p:  p,
		fl: fl,
		fm: m,
		cp: cre,
	}

	if r, e := os.OpenRoot(filepath.Dir(p)); e != nil {
		return nil, e
	} else if f, e := r.OpenFile(filepath.Base(p), fl, m); e != nil {
		_ = r.Close()
		return nil, e
	} else if _, e = f.Seek(0, io.SeekEnd); e != nil {
		_ = f.Close()
		_ = r.Close()
		return nil, e
	} else {
		i.r = r
		i.f = f
	}

	ctx, cancel := context.WithCancel(context.Background())
	i.cancel = cancel
	go i.watch(ctx)

	return i, nil
}

// Write writes to the current underlying file, guarded against concurrent
// access from the periodic rotation watcher.
func (i *fileAgg) Write(p []byte) (n int, err error) {
	i.m.Lock()
	defer i.m.Unlock()

	return i.f.Write(p)
}

// Close stops the rotation watcher and closes the file handles.
func (i *fileAgg) Close() error {
	i.close()
	return nil
}

func (i *fileAgg) close() {
	if i.cancel != nil {
		i.cancel()
	}

	i.m.Lock()
	defer i.m.Unlock()

	_ = i.f.Close()
	_ = i.r.Close()
}

// watch runs the periodic sync/rotation-detection loop. It flushes buffered
// data to disk and detects when the file on disk has been renamed or removed
// out from under us (e.g. by logrotate), reopening the path in that case.
func (i *fileAgg) watch(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			i.checkRotate()
		}
	}
}

// checkRotate preserves the inode-comparison rotation detection: sync the
// current file descriptor, then compare it against what currently lives at
// the configured path. A mismatch (or a missing disk file) means the file
// was rotated out from under us, so reopen it in place.
func (i *fileAgg) checkRotate() {
	i.m.Lock()
	defer i.m.Unlock()

	syncErr := i.f.Sync()

	needReopen := syncErr != nil
	if !needReopen && i.cp {
		currentStat, err1 := i.f.Stat()
		diskStat, err2 := os.Stat(i.p)

		if err2 != nil || (err1 == nil && !os.SameFile(currentStat, diskStat)) {
			needReopen = true
		}
	}

	if !needReopen {
		return
	}

	_ = i.f.Close()

	if f, e := i.r.OpenFile(filepath.Base(i.p), i.fl, i.fm); e != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error opening file %s: %v\n", i.p, e)
	} else {
		_, _ = f.Seek(0, io.SeekEnd)
		i.f = f
	}
}

// ResetOpenFiles closes all open file aggregators and clears the aggregator map.
// This function is primarily used for testing and cleanup purposes.
func ResetOpenFiles() {
	agg.Range(func(k string, v *fileAgg) bool {
		v.close()
		agg.Delete(k)
		return true
	})
}
