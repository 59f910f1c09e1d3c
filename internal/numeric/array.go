// Package numeric provides the float array type exposed to notebook cells.
// Arrays support in-memory computation only; every save primitive is denied.
package numeric

import (
	"fmt"
	"math"

	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/services"
)

// Array is a one-dimensional float64 array
type Array struct {
	data  []float64
	guard models.ExportGuard
}

// New copies values into an array without a session guard
func New(values ...float64) *Array {
	return NewGuarded(nil, values...)
}

// NewGuarded copies values into an array bound to guard
func NewGuarded(guard models.ExportGuard, values ...float64) *Array {
	data := make([]float64, len(values))
	copy(data, values)
	return &Array{data: data, guard: guard}
}

// Len returns the number of elements
func (a *Array) Len() int {
	return len(a.data)
}

// At returns element i
func (a *Array) At(i int) float64 {
	return a.data[i]
}

// Values returns a copy of the elements
func (a *Array) Values() []float64 {
	out := make([]float64, len(a.data))
	copy(out, a.data)
	return out
}

// Sum returns the sum of all elements
func (a *Array) Sum() float64 {
	var s float64
	for _, v := range a.data {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean, or NaN for an empty array
func (a *Array) Mean() float64 {
	if len(a.data) == 0 {
		return math.NaN()
	}
	return a.Sum() / float64(len(a.data))
}

// Min returns the smallest element, or NaN for an empty array
func (a *Array) Min() float64 {
	if len(a.data) == 0 {
		return math.NaN()
	}
	m := a.data[0]
	for _, v := range a.data[1:] {
		m = math.Min(m, v)
	}
	return m
}

// Max returns the largest element, or NaN for an empty array
func (a *Array) Max() float64 {
	if len(a.data) == 0 {
		return math.NaN()
	}
	m := a.data[0]
	for _, v := range a.data[1:] {
		m = math.Max(m, v)
	}
	return m
}

func (a *Array) String() string {
	return fmt.Sprint(a.data)
}

// Save is denied
func (a *Array) Save(path string) error {
	return deny(a, models.OperationNumericSave)
}

// SaveText is denied
func (a *Array) SaveText(path string) error {
	return deny(a, models.OperationNumericSaveText)
}

// Save is denied regardless of arguments
func Save(path string, a *Array) error {
	return deny(a, models.OperationNumericSave)
}

// SaveText is denied regardless of arguments
func SaveText(path string, a *Array) error {
	return deny(a, models.OperationNumericSaveText)
}

func deny(a *Array, op models.GovernedOperation) error {
	if a != nil && a.guard != nil {
		return a.guard.Deny(op, "")
	}
	return services.NewExportDenied(string(op), "")
}
