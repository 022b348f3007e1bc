// Package volume holds dense 3D voxel grids shared by the mask and image pipelines
package volume

import (
	"fmt"
	"sort"
)

// Volume is a dense voxel grid indexed x + y*Width + z*Width*Height.
// x runs along image columns, y along image rows and z across slices.
type Volume struct {
	Width, Height, Depth int
	Data                 []float32
}

// New allocates a zero filled volume
func New(width, height, depth int) *Volume {
	return &Volume{
		Width:  width,
		Height: height,
		Depth:  depth,
		Data:   make([]float32, width*height*depth),
	}
}

// Len returns the number of voxels
func (v *Volume) Len() int {
	return v.Width * v.Height * v.Depth
}

// Shape returns the dimensions as (width, height, depth)
func (v *Volume) Shape() [3]int {
	return [3]int{v.Width, v.Height, v.Depth}
}

// SameShape reports whether two volumes have identical dimensions
func (v *Volume) SameShape(o *Volume) bool {
	return v.Shape() == o.Shape()
}

// Index returns the flat offset of a voxel
func (v *Volume) Index(x, y, z int) int {
	return x + y*v.Width + z*v.Width*v.Height
}

// Contains reports whether the coordinates fall inside the grid
func (v *Volume) Contains(x, y, z int) bool {
	return x >= 0 && x < v.Width && y >= 0 && y < v.Height && z >= 0 && z < v.Depth
}

// At returns the voxel value
func (v *Volume) At(x, y, z int) float32 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores a voxel value
func (v *Volume) Set(x, y, z int, val float32) {
	v.Data[v.Index(x, y, z)] = val
}

// Plane returns slice z as a view into the volume data
func (v *Volume) Plane(z int) *Plane {
	n := v.Width * v.Height
	return &Plane{Width: v.Width, Height: v.Height, Data: v.Data[z*n : (z+1)*n]}
}

// Clone returns a deep copy
func (v *Volume) Clone() *Volume {
	c := &Volume{Width: v.Width, Height: v.Height, Depth: v.Depth, Data: make([]float32, len(v.Data))}
	copy(c.Data, v.Data)
	return c
}

// FlipX mirrors the volume along the column axis in place
func (v *Volume) FlipX() {
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			for l, r := 0, v.Width-1; l < r; l, r = l+1, r-1 {
				i, j := v.Index(l, y, z), v.Index(r, y, z)
				v.Data[i], v.Data[j] = v.Data[j], v.Data[i]
			}
		}
	}
}

// FlipY mirrors the volume along the row axis in place
func (v *Volume) FlipY() {
	for z := 0; z < v.Depth; z++ {
		for t, b := 0, v.Height-1; t < b; t, b = t+1, b-1 {
			for x := 0; x < v.Width; x++ {
				i, j := v.Index(x, t, z), v.Index(x, b, z)
				v.Data[i], v.Data[j] = v.Data[j], v.Data[i]
			}
		}
	}
}

// FlipZ reverses the slice order in place
func (v *Volume) FlipZ() {
	n := v.Width * v.Height
	for a, b := 0, v.Depth-1; a < b; a, b = a+1, b-1 {
		pa, pb := v.Data[a*n:(a+1)*n], v.Data[b*n:(b+1)*n]
		for i := range pa {
			pa[i], pb[i] = pb[i], pa[i]
		}
	}
}

// Count returns the number of voxels matching pred
func (v *Volume) Count(pred func(float32) bool) int {
	n := 0
	for _, val := range v.Data {
		if pred(val) {
			n++
		}
	}
	return n
}

// CountNonZero returns the number of non-zero voxels
func (v *Volume) CountNonZero() int {
	return v.Count(func(f float32) bool { return f != 0 })
}

// Labels returns the distinct non-zero values in ascending order
func (v *Volume) Labels() []float32 {
	seen := map[float32]struct{}{}
	for _, val := range v.Data {
		if val != 0 {
			seen[val] = struct{}{}
		}
	}
	labels := make([]float32, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// Select returns a binary volume with 1 where the voxel equals label
func (v *Volume) Select(label float32) *Volume {
	out := New(v.Width, v.Height, v.Depth)
	for i, val := range v.Data {
		if val == label {
			out.Data[i] = 1
		}
	}
	return out
}

// Max merges o into v keeping the per-voxel maximum
func (v *Volume) Max(o *Volume) error {
	if !v.SameShape(o) {
		return fmt.Errorf("shape %v does not match %v", o.Shape(), v.Shape())
	}
	for i, val := range o.Data {
		if val > v.Data[i] {
			v.Data[i] = val
		}
	}
	return nil
}

// Plane is one 2D slice of a volume indexed x + y*Width
type Plane struct {
	Width, Height int
	Data          []float32
}

// NewPlane allocates a zero filled plane
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Data: make([]float32, width*height)}
}

// At returns the value at (x, y), zero outside the plane
func (p *Plane) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return 0
	}
	return p.Data[x+y*p.Width]
}

// SetMax raises (x, y) to val when val is larger, ignoring coordinates outside the plane
func (p *Plane) SetMax(x, y int, val float32) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	if i := x + y*p.Width; val > p.Data[i] {
		p.Data[i] = val
	}
}
