/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package engine

import (
	"syscall"
	"unsafe"
)

// JITPage represents one page of mmap'd executable memory. Unlike
// _scm_ref/jit_writer.go's JITPage (one RW mapping made RX in place) this
// keeps the W^X discipline explicit: allocExec hands back a page still in
// RW state, and makeRX flips it once code emission is finished.
type JITPage struct {
	Base unsafe.Pointer
	Size int
}

// JITWriter is the platform-independent code emitter scaffold.
// Architecture-specific emit methods live in jit_emit_amd64.go / the arm64 stub.
type JITWriter struct {
	Ptr     unsafe.Pointer
	End     unsafe.Pointer
	Start   unsafe.Pointer
	Pages   []*JITPage
	Current *JITPage

	Labels    [64]int32
	LabelNext uint8

	Fixups    [128]JITFixup
	FixupNext uint8
}

// JITFixup records a forward reference that must be patched after all
// labels are placed.
type JITFixup struct {
	CodePos  int32
	LabelID  uint8
	Size     uint8
	Relative bool
}

// DefineLabel allocates a new label at the current write position.
func (w *JITWriter) DefineLabel() uint8 {
	id := w.LabelNext
	w.LabelNext++
	w.Labels[id] = int32(uintptr(w.Ptr) - uintptr(w.Start))
	return id
}

// ReserveLabel allocates a label ID for later placement via MarkLabel.
func (w *JITWriter) ReserveLabel() uint8 {
	id := w.LabelNext
	w.LabelNext++
	w.Labels[id] = -1
	return id
}

// MarkLabel sets the position of a previously reserved label.
func (w *JITWriter) MarkLabel(id uint8) {
	w.Labels[id] = int32(uintptr(w.Ptr) - uintptr(w.Start))
}

// AddFixup records a forward reference to be patched by ResolveFixups.
func (w *JITWriter) AddFixup(labelID uint8, size uint8, relative bool) {
	w.Fixups[w.FixupNext] = JITFixup{
		CodePos:  int32(uintptr(w.Ptr) - uintptr(w.Start)),
		LabelID:  labelID,
		Size:     size,
		Relative: relative,
	}
	w.FixupNext++
}

// ResolveFixups patches all recorded forward references after code generation.
func (w *JITWriter) ResolveFixups() {
	for i := uint8(0); i < w.FixupNext; i++ {
		f := &w.Fixups[i]
		targetPos := w.Labels[f.LabelID]
		if targetPos < 0 {
			panic("jit: undefined label")
		}
		patchAddr := unsafe.Add(w.Start, int(f.CodePos))
		if f.Relative {
			offset := targetPos - (f.CodePos + int32(f.Size))
			*(*int32)(patchAddr) = offset
		} else {
			*(*int32)(patchAddr) = targetPos
		}
	}
}

// allocExec mmaps size bytes (rounded up to a page), RW, anonymous
// private. Ported from _scm_ref/jit.go's allocExec — the W^X toggle is
// applied separately by makeRX once code emission is complete.
func allocExec(size int) (*JITPage, error) {
	page := syscall.Getpagesize()
	n := (size + page - 1) &^ (page - 1)
	b, err := syscall.Mmap(-1, 0, n, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return &JITPage{Base: unsafe.Pointer(&b[0]), Size: n}, nil
}

// makeRX flips a page from RW to RX, completing the W^X discipline. Must
// be called exactly once, after all code has been written and before the
// page's entry point is ever called.
func (p *JITPage) makeRX() error {
	data := (*[1 << 30]byte)(p.Base)[:p.Size:p.Size]
	return syscall.Mprotect(data, syscall.PROT_READ|syscall.PROT_EXEC)
}

// freeExec releases pages back to the OS. Called by PagePool on eviction.
func freeExec(pages []*JITPage) {
	for _, p := range pages {
		data := (*[1 << 30]byte)(p.Base)[:p.Size:p.Size]
		syscall.Munmap(data)
	}
}
