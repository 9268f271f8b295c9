// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ring implements a simple ring buffer.
package ring

// Buffer is a fixed size ring buffer. When full, writes overwrite the
// oldest elements.
type Buffer[T any] struct {
	data  []T
	head  int
	count int
}

func NewBuffer[T any](n int) *Buffer[T] {
	return &Buffer[T]{data: make([]T, n)}
}

// Len returns the number of unread elements in the buffer.
func (r *Buffer[T]) Len() int {
	return r.count
}

func (r *Buffer[T]) Size() int {
	return len(r.data)
}

func (r *Buffer[T]) Write(src []T) {
	size := len(r.data)
	if size == 0 {
		return
	}
	if len(src) >= size {
		copy(r.data, src[len(src)-size:])
		r.head = 0
		r.count = size
		return
	}
	tail := (r.head + r.count) % size
	n := copy(r.data[tail:], src)
	copy(r.data, src[n:])
	r.count += len(src)
	if r.count > size {
		r.head = (r.head + r.count - size) % size
		r.count = size
	}
}

// Read copies unread elements into dst and advances past them.
func (r *Buffer[T]) Read(dst []T) int {
	n := r.CopyTo(dst)
	r.Advance(n)
	return n
}

// CopyTo copies unread elements into dst, oldest first, without
// advancing.
func (r *Buffer[T]) CopyTo(dst []T) int {
	if r.count == 0 {
		return 0
	}
	end := r.head + r.count
	if end <= len(r.data) {
		return copy(dst, r.data[r.head:end])
	}
	n := copy(dst, r.data[r.head:])
	n += copy(dst[n:], r.data[:end-len(r.data)])
	return n
}

func (r *Buffer[T]) Advance(n int) {
	if r.count == 0 {
		return
	}
	n = min(n, r.count)
	r.head = (r.head + n) % len(r.data)
	r.count -= n
}

// Last returns the most recently written unread element.
func (r *Buffer[T]) Last() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.data[(r.head+r.count-1)%len(r.data)], true
}

// Reset discards all unread elements.
func (r *Buffer[T]) Reset() {
	r.head = 0
	r.count = 0
}
