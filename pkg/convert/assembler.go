// Package convert drives the two pipelines between RT Structure Sets and NIfTI label masks
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jpfielding/rtss.go/pkg/contour"
	"github.com/jpfielding/rtss.go/pkg/geom"
	"github.com/jpfielding/rtss.go/pkg/rtstruct"
	"github.com/jpfielding/rtss.go/pkg/volume"
)

// ErrShapeMismatch is returned when a mask and its image series disagree on dimensions
var ErrShapeMismatch = errors.New("shape mismatch")

// Region is one rasterized ROI
type Region struct {
	Summary ROISummary
	// Volume is the label volume the ROI was drawn into, shared by all regions in combined mode
	Volume *volume.Volume
	// Dropped counts contours that fell outside the series or carried no points
	Dropped int
}

// Assembler rasterizes ROIs onto the grid of an image series. In combined mode every
// ROI shares one volume and takes the next label from 1 in the order added. In separate
// mode each ROI gets its own volume labelled 1.
type Assembler struct {
	grid     geom.Grid
	separate bool
	// holes fills the contours of a slice together with the even-odd rule, so inner rings cut holes
	holes bool

	combined *volume.Volume
	regions  []Region
}

// NewAssembler returns an empty assembler for grid
func NewAssembler(grid geom.Grid, separate, holes bool) *Assembler {
	a := &Assembler{grid: grid, separate: separate, holes: holes}
	if !separate {
		a.combined = a.newVolume()
	}
	return a
}

func (a *Assembler) newVolume() *volume.Volume {
	return volume.New(a.grid.Size[0], a.grid.Size[1], a.grid.Size[2])
}

// Regions returns the ROIs added so far in order
func (a *Assembler) Regions() []Region {
	return a.regions
}

// Volumes returns the output volumes, one in combined mode and one per ROI otherwise
func (a *Assembler) Volumes() []*volume.Volume {
	if !a.separate {
		return []*volume.Volume{a.combined}
	}
	out := make([]*volume.Volume, len(a.regions))
	for i, r := range a.regions {
		out[i] = r.Volume
	}
	return out
}

// Add rasterizes an ROI. Contours whose plane lies outside the series are dropped
// and counted, never fatal. The region volume is measured right after drawing.
func (a *Assembler) Add(ctx context.Context, roi rtstruct.ROI) (Region, error) {
	label := 1
	target := a.combined
	if a.separate {
		target = a.newVolume()
	} else {
		label = len(a.regions) + 1
	}
	log := slog.With("roi_number", roi.Number, "roi_name", roi.Name, "label", label)

	bySlice := map[int][]contour.Polygon{}
	var order []int
	dropped := 0
	for i, c := range roi.Contours {
		if len(c.Points) == 0 {
			dropped++
			log.WarnContext(ctx, "dropping empty contour", "contour", i+1)
			continue
		}
		k, err := a.grid.SliceIndex(c.Points[0].Z)
		if err != nil {
			dropped++
			log.WarnContext(ctx, "dropping contour", "contour", i+1, "error", err)
			continue
		}
		poly := make(contour.Polygon, len(c.Points))
		for j, p := range c.Points {
			idx := a.grid.Continuous(p)
			poly[j] = contour.Point{X: idx.X, Y: idx.Y}
		}
		if _, seen := bySlice[k]; !seen {
			order = append(order, k)
		}
		bySlice[k] = append(bySlice[k], poly)
	}

	for _, k := range order {
		if err := ctx.Err(); err != nil {
			return Region{}, err
		}
		plane := target.Plane(k)
		if a.holes {
			contour.FillRings(plane, bySlice[k], float32(label))
			continue
		}
		for _, poly := range bySlice[k] {
			contour.Fill(plane, poly, float32(label))
		}
	}

	voxels := target.Count(func(v float32) bool { return v == float32(label) })
	region := Region{
		Summary: ROISummary{
			Number:      roi.Number,
			Name:        roi.Name,
			NumContours: len(roi.Contours),
			Points:      roi.NumPoints(),
			Label:       label,
			VolumeMM3:   float64(voxels) * a.grid.VoxelVolume(),
		},
		Volume:  target,
		Dropped: dropped,
	}
	if roi.Color != nil {
		hex := roi.Color.Hex()
		region.Summary.DisplayColor = &hex
	}
	a.regions = append(a.regions, region)
	log.InfoContext(ctx, "rasterized structure",
		"contours", len(roi.Contours),
		"dropped", dropped,
		"voxels", voxels,
		"volume_mm3", fmt.Sprintf("%.3f", region.Summary.VolumeMM3),
	)
	return region, nil
}
