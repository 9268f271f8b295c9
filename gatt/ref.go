// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gatt

import "reflect"

// Ref is a single owned reference to a Counted resource. The zero
// Ref holds nothing.
//
// A Ref must not be copied after a reference has been acquired;
// use Take to move ownership.
type Ref[T Counted] struct {
	v    T
	held bool
}

// Acquire takes a new reference to v. If v is nil, including a nil
// pointer held in an interface, the returned Ref is empty.
func Acquire[T Counted](v T) Ref[T] {
	if isNil(v) {
		return Ref[T]{}
	}
	v.Ref()
	return Ref[T]{v: v, held: true}
}

// Get returns the referenced value, or the zero T if r is empty.
func (r *Ref[T]) Get() T { return r.v }

// Held returns whether r holds a reference.
func (r *Ref[T]) Held() bool { return r.held }

// Release drops the reference held by r, if any. Releasing an
// empty Ref is a no-op.
func (r *Ref[T]) Release() {
	if !r.held {
		return
	}
	v := r.v
	*r = Ref[T]{}
	v.Unref()
}

// Take moves the reference out of r, leaving r empty.
func (r *Ref[T]) Take() Ref[T] {
	t := *r
	*r = Ref[T]{}
	return t
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
