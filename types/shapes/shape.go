/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package shapes defines Shape and associated tools.
//
// Shape represents the shape (rank, dimensions and DType) of a tensor or of the
// expected value of a node during graph shape propagation. DType indicates the
// type of the unit element of a tensor; the enumeration is defined in
// github.com/gomlx/gopjrt/dtypes.
//
// Unlike a concrete tensor shape, a Shape used during shape propagation may be
// only partially known: individual extents can be UnknownDim (-1), and a shape
// whose rank itself is not yet known is represented by the zero value (see
// Unknown). Inference rules fill in extents incrementally with AssignCheck,
// which enforces that a concrete extent, once assigned, is never overwritten
// with a conflicting value.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a tensor.
//   - Axis: the index of a dimension. We refer to the dimension index as "axis"
//     (plural axes), and its size as its dimension (or extent).
//   - Batch axes: all axes preceding the trailing two, treated as independent
//     replicas of a 2-D matrix operation.
//   - Scalar: a shape with no axes, a single value of the associated DType.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// UnknownDim marks an extent that has not yet been determined during shape
// propagation. Concrete extents are always >= 1.
const UnknownDim = int(-1)

// Shape represents the shape of a tensor, possibly only partially known during
// shape propagation.
//
// Use Make to create a fully or partially known shape, and Unknown for a shape
// whose rank is not determined yet.
type Shape struct {
	DType      DType
	Dimensions []int
}

// Make returns a Shape with the given dimensions. Each dimension must be
// positive or UnknownDim.
func Make(dtype DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 && dim != UnknownDim {
			exceptions.Panicf("shapes.Make(%s): dimensions must be positive or UnknownDim (-1)", s)
		}
	}
	return s
}

// Unknown returns a shape of the given dtype whose rank is not yet known.
// A rank of 0 always means "not yet known" in this package: the operator
// family never produces true rank-0 values, reductions to a scalar yield a
// rank-1, extent-1 shape instead.
func Unknown(dtype DType) Shape {
	return Shape{DType: dtype, Dimensions: nil}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: InvalidDType}
}

// Ok returns whether this is a valid Shape. The zero value Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != InvalidDType }

// Rank of the shape, that is, the number of axes. An Unknown shape has rank 0.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsFullyDefined reports whether the shape is valid, has a known rank and
// carries no UnknownDim extent.
func (s Shape) IsFullyDefined() bool {
	if !s.Ok() || s.Rank() == 0 {
		return false
	}
	for _, dim := range s.Dimensions {
		if dim == UnknownDim {
			return false
		}
	}
	return true
}

// HasUnknownDims reports whether any extent is still UnknownDim.
func (s Shape) HasUnknownDims() bool {
	return slices.Contains(s.Dimensions, UnknownDim)
}

// Dim returns the dimension of the given axis. axis can take negative numbers,
// in which case it counts from the end -- so axis=-1 refers to the last axis.
// It panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer, pretty-prints the shape. Unknown extents are
// printed as "?".
func (s Shape) String() string {
	if !s.Ok() {
		return "(invalid)"
	}
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, 0, s.Rank())
	for _, dim := range s.Dimensions {
		if dim == UnknownDim {
			parts = append(parts, "?")
		} else {
			parts = append(parts, fmt.Sprintf("%d", dim))
		}
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

// Size returns the number of elements of DType needed for this shape, the
// product of all dimensions. It panics if the shape is not fully defined.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		if d == UnknownDim {
			exceptions.Panicf("Shape.Size() of partially unknown shape %s", s)
		}
		size *= d
	}
	return
}

// Memory returns the memory needed to store an array of the given shape, in
// bytes.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// EqualDimensions compares two shapes for equality of dimensions. DTypes can be
// different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// AssignCheck merges src into dst.
//
// If dst is invalid or of unknown rank, it becomes a clone of src. Otherwise
// ranks must match, and each extent is merged axis by axis: unknown extents on
// either side take the other side's value; two concrete extents that disagree
// are a conflict and return an error -- a concrete extent is never silently
// reassigned.
//
// This is the primitive every shape-inference rule uses to write results into
// the caller's shape slices.
func AssignCheck(dst *Shape, src Shape) error {
	if !src.Ok() {
		return errors.Errorf("AssignCheck: source shape is invalid")
	}
	if !dst.Ok() {
		*dst = src.Clone()
		return nil
	}
	if dst.DType != src.DType {
		return errors.Errorf("AssignCheck: dtypes conflict, previously inferred %s, got %s", *dst, src)
	}
	if dst.Rank() == 0 {
		*dst = src.Clone()
		return nil
	}
	if src.Rank() == 0 {
		// Source carries no rank information yet.
		return nil
	}
	if dst.Rank() != src.Rank() {
		return errors.Errorf("AssignCheck: ranks conflict, previously inferred %s, got %s", *dst, src)
	}
	for axis, dim := range src.Dimensions {
		have := dst.Dimensions[axis]
		switch {
		case dim == UnknownDim:
			// Nothing new for this axis.
		case have == UnknownDim:
			dst.Dimensions[axis] = dim
		case have != dim:
			return errors.Errorf("AssignCheck: axis %d conflict, previously inferred %s, got %s", axis, *dst, src)
		}
	}
	return nil
}
