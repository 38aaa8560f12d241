// Package ndarray provides the dense float64 n-dimensional array bound into
// scripts as the np capability. Two-dimensional operations delegate to
// gonum's mat package.
package ndarray

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DType is the element type name reported in previews.
const DType = "float64"

// ErrShape is returned when an operation receives incompatible shapes.
var ErrShape = errors.New("shape mismatch")

// Array is a row-major dense array of float64.
type Array struct {
	shape []int
	data  []float64
}

// New wraps data with the given shape. The product of the shape must equal
// len(data).
func New(shape []int, data []float64) (*Array, error) {
	if size(shape) != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d", ErrShape, shape, size(shape), len(data))
	}
	return &Array{shape: append([]int(nil), shape...), data: data}, nil
}

// FromValue builds an array from a nested slice of numbers, as exported from
// a script array. Ragged input is rejected.
func FromValue(v any) (*Array, error) {
	switch x := v.(type) {
	case *Array:
		return x.Copy(), nil
	case []float64:
		return &Array{shape: []int{len(x)}, data: append([]float64(nil), x...)}, nil
	}
	var data []float64
	shape, err := walk(v, 0, nil, &data)
	if err != nil {
		return nil, err
	}
	return &Array{shape: shape, data: data}, nil
}

func walk(v any, depth int, shape []int, data *[]float64) ([]int, error) {
	items, ok := v.([]any)
	if !ok {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("unsupported element %T", v)
		}
		if depth != len(shape) {
			return nil, fmt.Errorf("%w: ragged nesting", ErrShape)
		}
		*data = append(*data, f)
		return shape, nil
	}
	switch {
	case depth == len(shape) && len(*data) > 0:
		return nil, fmt.Errorf("%w: ragged nesting", ErrShape)
	case depth == len(shape):
		shape = append(shape, len(items))
	case shape[depth] != len(items):
		return nil, fmt.Errorf("%w: ragged nesting", ErrShape)
	}
	for _, it := range items {
		var err error
		if shape, err = walk(it, depth+1, shape, data); err != nil {
			return nil, err
		}
	}
	return shape, nil
}

// Zeros returns a zero-filled array.
func Zeros(shape ...int) *Array {
	return &Array{shape: append([]int(nil), shape...), data: make([]float64, size(shape))}
}

// Ones returns an array filled with 1.
func Ones(shape ...int) *Array {
	a := Zeros(shape...)
	for i := range a.data {
		a.data[i] = 1
	}
	return a
}

// Arange returns evenly spaced values in [start, stop).
func Arange(start, stop, step float64) (*Array, error) {
	if step == 0 {
		return nil, errors.New("arange step must not be zero")
	}
	n := int(math.Ceil((stop - start) / step))
	if n < 0 {
		n = 0
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = start + float64(i)*step
	}
	return &Array{shape: []int{n}, data: data}, nil
}

// Linspace returns n evenly spaced values over [start, stop].
func Linspace(start, stop float64, n int) *Array {
	if n < 0 {
		n = 0
	}
	data := make([]float64, n)
	if n == 1 {
		data[0] = start
	} else if n > 1 {
		floats.Span(data, start, stop)
	}
	return &Array{shape: []int{n}, data: data}
}

// Shape returns a copy of the dimensions.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Ndim returns the number of dimensions.
func (a *Array) Ndim() int { return len(a.shape) }

// Size returns the number of elements.
func (a *Array) Size() int { return len(a.data) }

// DType returns the element type name.
func (a *Array) DType() string { return DType }

// Flat returns a copy of the elements in row-major order.
func (a *Array) Flat() []float64 { return append([]float64(nil), a.data...) }

// Copy returns a deep copy.
func (a *Array) Copy() *Array {
	return &Array{shape: a.Shape(), data: a.Flat()}
}

// At returns the element at the given index.
func (a *Array) At(index ...int) (float64, error) {
	if len(index) != len(a.shape) {
		return 0, fmt.Errorf("%w: index %v for shape %v", ErrShape, index, a.shape)
	}
	off := 0
	for d, i := range index {
		if i < 0 || i >= a.shape[d] {
			return 0, fmt.Errorf("index %v out of range for shape %v", index, a.shape)
		}
		off = off*a.shape[d] + i
	}
	return a.data[off], nil
}

// Reshape returns the same elements with a new shape. One dimension may be
// -1 and is inferred.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	shape = append([]int(nil), shape...)
	infer, known := -1, 1
	for i, d := range shape {
		if d == -1 {
			if infer >= 0 {
				return nil, fmt.Errorf("%w: only one dimension may be -1", ErrShape)
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 && known > 0 {
		shape[infer] = len(a.data) / known
	}
	return New(shape, a.Flat())
}

// T returns the transpose of a 2-D array; other arrays are returned as is.
func (a *Array) T() *Array {
	if len(a.shape) != 2 || len(a.data) == 0 {
		return a.Copy()
	}
	var t mat.Dense
	t.CloneFrom(a.dense().T())
	return fromDense(&t)
}

// Add returns the element-wise sum with another array of the same shape or
// a scalar.
func (a *Array) Add(other any) (*Array, error) {
	return a.zip(other, func(x, y float64) float64 { return x + y })
}

// Sub returns the element-wise difference.
func (a *Array) Sub(other any) (*Array, error) {
	return a.zip(other, func(x, y float64) float64 { return x - y })
}

// Mul returns the element-wise product.
func (a *Array) Mul(other any) (*Array, error) {
	return a.zip(other, func(x, y float64) float64 { return x * y })
}

// Div returns the element-wise quotient.
func (a *Array) Div(other any) (*Array, error) {
	return a.zip(other, func(x, y float64) float64 { return x / y })
}

// Apply maps fn over every element.
func (a *Array) Apply(fn func(float64) float64) *Array {
	out := a.Copy()
	for i, v := range out.data {
		out.data[i] = fn(v)
	}
	return out
}

// Sum returns the sum of all elements.
func (a *Array) Sum() float64 { return floats.Sum(a.data) }

// Mean returns the mean of all elements, NaN when empty.
func (a *Array) Mean() float64 {
	if len(a.data) == 0 {
		return math.NaN()
	}
	return stat.Mean(a.data, nil)
}

// Std returns the population standard deviation.
func (a *Array) Std() float64 {
	if len(a.data) == 0 {
		return math.NaN()
	}
	_, v := stat.PopMeanVariance(a.data, nil)
	return math.Sqrt(v)
}

// Min returns the smallest element, NaN when empty.
func (a *Array) Min() float64 {
	if len(a.data) == 0 {
		return math.NaN()
	}
	return floats.Min(a.data)
}

// Max returns the largest element, NaN when empty.
func (a *Array) Max() float64 {
	if len(a.data) == 0 {
		return math.NaN()
	}
	return floats.Max(a.data)
}

// Dot returns the matrix product for 2-D arrays and the inner product, as a
// 0-d array, for 1-D arrays of equal length.
func Dot(a, b *Array) (*Array, error) {
	if len(a.shape) == 1 && len(b.shape) == 1 {
		if len(a.data) != len(b.data) {
			return nil, fmt.Errorf("%w: %v and %v", ErrShape, a.shape, b.shape)
		}
		return &Array{shape: []int{}, data: []float64{floats.Dot(a.data, b.data)}}, nil
	}
	if len(a.shape) != 2 || len(b.shape) != 2 || a.shape[1] != b.shape[0] || len(a.data) == 0 || len(b.data) == 0 {
		return nil, fmt.Errorf("%w: cannot multiply %v by %v", ErrShape, a.shape, b.shape)
	}
	var c mat.Dense
	c.Mul(a.dense(), b.dense())
	return fromDense(&c), nil
}

// Inv returns the inverse of a square 2-D array.
func Inv(a *Array) (*Array, error) {
	if len(a.shape) != 2 || a.shape[0] != a.shape[1] || a.shape[0] == 0 {
		return nil, fmt.Errorf("%w: inverse needs a square matrix, got %v", ErrShape, a.shape)
	}
	var inv mat.Dense
	if err := inv.Inverse(a.dense()); err != nil {
		return nil, err
	}
	return fromDense(&inv), nil
}

// String renders the array in nested bracket form.
func (a *Array) String() string {
	if len(a.shape) == 0 {
		if len(a.data) == 1 {
			return fmt.Sprint(a.data[0])
		}
		return "[]"
	}
	var b strings.Builder
	a.format(&b, 0, 0)
	return b.String()
}

func (a *Array) format(b *strings.Builder, dim, off int) {
	b.WriteByte('[')
	stride := size(a.shape[dim+1:])
	for i := 0; i < a.shape[dim]; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		if dim == len(a.shape)-1 {
			fmt.Fprint(b, a.data[off+i])
		} else {
			a.format(b, dim+1, off+i*stride)
		}
	}
	b.WriteByte(']')
}

func (a *Array) zip(other any, fn func(x, y float64) float64) (*Array, error) {
	out := a.Copy()
	if f, ok := toFloat(other); ok {
		for i, v := range out.data {
			out.data[i] = fn(v, f)
		}
		return out, nil
	}
	b, err := FromValue(other)
	if err != nil {
		return nil, err
	}
	if !sameShape(a.shape, b.shape) {
		return nil, fmt.Errorf("%w: %v and %v", ErrShape, a.shape, b.shape)
	}
	for i, v := range out.data {
		out.data[i] = fn(v, b.data[i])
	}
	return out, nil
}

func (a *Array) dense() *mat.Dense {
	return mat.NewDense(a.shape[0], a.shape[1], a.Flat())
}

func fromDense(m *mat.Dense) *Array {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return &Array{shape: []int{r, c}, data: data}
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
