package convert

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jpfielding/rtss.go/pkg/contour"
	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/module"
	"github.com/jpfielding/rtss.go/pkg/geom"
	"github.com/jpfielding/rtss.go/pkg/nifti"
	"github.com/jpfielding/rtss.go/pkg/rtstruct"
	"github.com/jpfielding/rtss.go/pkg/series"
	"github.com/jpfielding/rtss.go/pkg/volume"
)

// DefaultColor is the display color given to encoded ROIs
var DefaultColor = rtstruct.Color{0, 230, 0}

// EncodeOptions configure NiftiToRTSS
type EncodeOptions struct {
	MaskPath  string
	SeriesDir string
	OutPath   string

	StructureLabel string
	// Tolerance is the polygon simplification distance in mm
	Tolerance float64
	MinPoints int
	// PerLabel writes one ROI per distinct non-zero mask value instead of one ROI for all
	PerLabel bool
	Color    *rtstruct.Color
	// Level is the mask value a voxel must exceed to be inside
	Level float32
}

// DefaultEncodeOptions returns the command line defaults
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		StructureLabel: "ROI1",
		Tolerance:      1,
		MinPoints:      3,
	}
}

// Report summarizes one pipeline run
type Report struct {
	Results []rtstruct.ROIResult
	Regions []ROISummary
	Outputs []string
}

// Dropped sums the contours left out across every ROI
func (r Report) Dropped() int {
	n := 0
	for _, res := range r.Results {
		n += res.Dropped
	}
	return n
}

type labelMask struct {
	name string
	mask *volume.Volume
}

// NiftiToRTSS contours a mask drawn on an image series and writes the result as an RTSTRUCT
func NiftiToRTSS(ctx context.Context, opts EncodeOptions) (*Report, error) {
	if opts.StructureLabel == "" {
		opts.StructureLabel = "ROI1"
	}
	color := DefaultColor
	if opts.Color != nil {
		color = *opts.Color
	}

	img, err := nifti.ReadFile(opts.MaskPath)
	if err != nil {
		return nil, err
	}
	if img.Frames > 1 {
		slog.InfoContext(ctx, "mask has several volumes, using the first", "frames", img.Frames)
	}
	s, err := series.Load(ctx, opts.SeriesDir)
	if err != nil {
		return nil, err
	}
	grid := s.Grid()
	mask := img.Volume
	if mask.Shape() != grid.Size {
		return nil, fmt.Errorf("mask %v, series %v: %w", mask.Shape(), grid.Size, ErrShapeMismatch)
	}
	conv := geom.ConventionFromAffine(img.Affine())
	conv.ToLPS(mask)
	slog.InfoContext(ctx, "encoding mask", "grid", grid.String(), "convention", fmt.Sprintf("%+v", conv))

	refs := make([]rtstruct.ImageRef, s.Len())
	for i, sl := range s.Slices {
		refs[i] = rtstruct.ImageRef{SOPClassUID: sl.SOPClassUID(), SOPInstanceUID: sl.SOPInstanceUID()}
	}
	set := rtstruct.FromImage(s.Reference(), refs, opts.StructureLabel)
	set.Series.SeriesDescription = "RTSS generated by nifti2rtss"
	set.Series.OperatorsName = module.PersonName{FamilyName: "nifti2rtss"}

	var masks []labelMask
	if opts.PerLabel {
		for _, l := range mask.Labels() {
			if l <= opts.Level {
				continue
			}
			masks = append(masks, labelMask{name: "ROI_" + strconv.FormatFloat(float64(l), 'f', -1, 32), mask: mask.Select(l)})
		}
	} else {
		masks = []labelMask{{name: "ROI_1", mask: mask}}
	}

	report := &Report{}
	tolerance := opts.Tolerance / grid.MeanInPlaneSpacing()
	for _, m := range masks {
		contours, dropped, err := encodeMask(ctx, m.mask, grid, refs, tolerance, opts.MinPoints, opts.Level)
		if err != nil {
			return nil, err
		}
		c := color
		number := set.AddROI(rtstruct.ROI{Name: m.name, Color: &c, Contours: contours})
		report.Results = append(report.Results, rtstruct.ROIResult{
			Number:  number,
			Name:    m.name,
			Status:  rtstruct.Included,
			Dropped: dropped,
		})
		slog.InfoContext(ctx, "contoured structure", "roi_number", number, "roi_name", m.name, "contours", len(contours), "dropped", dropped)
	}

	ds, err := set.Dataset()
	if err != nil {
		return nil, err
	}
	for _, w := range dicom.ValidateRTStruct(ds).Warnings {
		slog.DebugContext(ctx, "structure set warning", "warning", w.Error())
	}
	if _, err := dicom.WriteFile(opts.OutPath, ds); err != nil {
		return nil, fmt.Errorf("writing %s: %w", opts.OutPath, err)
	}
	report.Outputs = append(report.Outputs, opts.OutPath)
	slog.InfoContext(ctx, "wrote structure set", "path", opts.OutPath, "rois", len(set.ROIs))
	return report, nil
}

// encodeMask traces every slice of a mask in series order. Polygons with too few
// vertices after simplification are dropped and counted.
func encodeMask(ctx context.Context, mask *volume.Volume, grid geom.Grid, refs []rtstruct.ImageRef, tolerance float64, minPoints int, level float32) ([]rtstruct.Contour, int, error) {
	var out []rtstruct.Contour
	dropped := 0
	for k := 0; k < mask.Depth; k++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		for _, poly := range contour.Extract(mask.Plane(k), level) {
			poly = contour.Simplify(poly, tolerance)
			if err := contour.Check(poly, minPoints); err != nil {
				dropped++
				slog.DebugContext(ctx, "dropping polygon", "slice", k, "error", err)
				continue
			}
			c := rtstruct.Contour{Image: refs[k]}
			for _, p := range poly {
				c.Points = append(c.Points, grid.IndexToPhysical(p.X, p.Y, k))
			}
			out = append(out, c)
		}
	}
	return out, dropped, nil
}
