// Package safemat wraps gocv.Mat with reference counting and a finalizer
// so frame buffers handed between pipeline stages can't be used after
// close and don't leak when a caller forgets to release them.
package safemat

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

var nextID uint64

// Mat is a lifecycle-safe handle to a gocv.Mat.
type Mat struct {
	mat      gocv.Mat
	isValid  int32
	refCount int32
	mu       sync.RWMutex
	id       uint64
	tag      string
}

// New allocates a zeroed Mat of the given size and type.
func New(rows, cols int, matType gocv.MatType) (*Mat, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("safemat: invalid dimensions %dx%d", cols, rows)
	}

	m := gocv.NewMatWithSize(rows, cols, matType)
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("safemat: failed to allocate %dx%d mat", cols, rows)
	}

	return wrap(m, "")
}

// FromMat clones src into an owned, lifecycle-safe Mat.
func FromMat(src gocv.Mat, tag string) (*Mat, error) {
	if src.Empty() {
		return nil, fmt.Errorf("safemat: source mat is empty")
	}

	cloned := src.Clone()
	if cloned.Empty() {
		cloned.Close()
		return nil, fmt.Errorf("safemat: clone failed")
	}

	return wrap(cloned, tag)
}

func wrap(m gocv.Mat, tag string) (*Mat, error) {
	sm := &Mat{
		mat:      m,
		isValid:  1,
		refCount: 1,
		id:       atomic.AddUint64(&nextID, 1),
		tag:      tag,
	}
	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm, nil
}

func (sm *Mat) IsValid() bool { return atomic.LoadInt32(&sm.isValid) == 1 }

func (sm *Mat) Empty() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return true
	}
	return sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Channels()
}

func (sm *Mat) Type() gocv.MatType {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return gocv.MatTypeCV8UC1
	}
	return sm.mat.Type()
}

// SameShape reports whether sm and other share rows, cols and channels.
func (sm *Mat) SameShape(other *Mat) bool {
	if sm == nil || other == nil {
		return false
	}
	return sm.Rows() == other.Rows() && sm.Cols() == other.Cols() && sm.Channels() == other.Channels()
}

func (sm *Mat) Clone() (*Mat, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() || sm.mat.Empty() {
		return nil, fmt.Errorf("safemat: cannot clone invalid/empty mat")
	}
	return FromMat(sm.mat, sm.tag+"_clone")
}

func (sm *Mat) CopyTo(dst *Mat) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() || sm.mat.Empty() {
		return fmt.Errorf("safemat: source mat invalid or empty")
	}

	dst.mu.Lock()
	defer dst.mu.Unlock()
	if !dst.IsValid() {
		return fmt.Errorf("safemat: destination mat invalid")
	}

	sm.mat.CopyTo(&dst.mat)
	return nil
}

// GetMat exposes the underlying gocv.Mat for operations that need it
// directly. Callers must not Close() the returned value.
func (sm *Mat) GetMat() gocv.Mat {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat
}

func (sm *Mat) ID() uint64 { return sm.id }

// AddRef increments the reference count; pair with Release.
func (sm *Mat) AddRef() { atomic.AddInt32(&sm.refCount, 1) }

// Release decrements the reference count, closing the Mat at zero.
func (sm *Mat) Release() {
	if atomic.AddInt32(&sm.refCount, -1) <= 0 {
		sm.Close()
	}
}

// Close frees the underlying Mat immediately. Safe to call more than once.
func (sm *Mat) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		if !sm.mat.Empty() {
			sm.mat.Close()
		}
		runtime.SetFinalizer(sm, nil)
	}
}

func (sm *Mat) finalize() {
	if atomic.LoadInt32(&sm.isValid) == 1 {
		sm.Close()
	}
}
