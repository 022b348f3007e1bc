package convert

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/geom"
	"github.com/jpfielding/rtss.go/pkg/nifti"
	"github.com/jpfielding/rtss.go/pkg/rtstruct"
	"github.com/jpfielding/rtss.go/pkg/series"
	"github.com/jpfielding/rtss.go/pkg/volume"
)

// DecodeOptions configure RTSSToNifti
type DecodeOptions struct {
	RTSSPath  string
	SeriesDir string
	// OutRoot names the mask, any .nii or .nii.gz suffix is replaced
	OutRoot string
	// StructPath overrides <root>_struct.nii for the image volume
	StructPath string

	Exclude  []string
	Separate bool
	Compress bool
	// Holes fills all contours of a slice together so inner rings are subtracted
	Holes bool
	// Convention selects the voxel order of the written images, the zero value keeps series order
	Convention geom.Convention
}

func (o DecodeOptions) ext() string {
	if o.Compress || nifti.IsGzip(o.OutRoot) {
		return ".nii.gz"
	}
	return ".nii"
}

// MaskPath returns where the combined mask, or the mask of a named ROI in separate mode, is written
func (o DecodeOptions) MaskPath(name string) string {
	root := nifti.TrimExt(o.OutRoot)
	if o.Separate {
		return root + "_" + name + o.ext()
	}
	return root + o.ext()
}

// SidecarPath returns where the ROI summaries are written
func (o DecodeOptions) SidecarPath() string {
	return nifti.TrimExt(o.OutRoot) + ".json"
}

// StructurePath returns where the image volume is written
func (o DecodeOptions) StructurePath() string {
	if o.StructPath != "" {
		return o.StructPath
	}
	return nifti.TrimExt(o.OutRoot) + "_struct" + o.ext()
}

// RTSSToNifti rasterizes the ROIs of a structure set onto its image series and writes
// the label mask(s), a JSON sidecar and the image volume.
func RTSSToNifti(ctx context.Context, opts DecodeOptions) (*Report, error) {
	s, err := series.Load(ctx, opts.SeriesDir)
	if err != nil {
		return nil, err
	}
	grid := s.Grid()

	ds, err := dicom.ReadFile(opts.RTSSPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", opts.RTSSPath, err)
	}
	if !dicom.IsRTStruct(ds) {
		return nil, fmt.Errorf("%s is not an RT structure set", opts.RTSSPath)
	}
	set, parsed, err := rtstruct.Parse(ctx, ds, rtstruct.ParseOptions{Exclude: opts.Exclude})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.RTSSPath, err)
	}
	if uid := s.FrameOfReferenceUID(); set.FrameOfReferenceUID != "" && uid != "" && uid != set.FrameOfReferenceUID {
		slog.WarnContext(ctx, "structure set and series frames of reference differ",
			"rtss", set.FrameOfReferenceUID, "series", uid)
	}
	slog.InfoContext(ctx, "decoding structure set", "grid", grid.String(), "structures", len(parsed.Results))

	asm := NewAssembler(grid, opts.Separate, opts.Holes)
	for _, roi := range set.ROIs {
		region, err := asm.Add(ctx, roi)
		if err != nil {
			return nil, err
		}
		for i := range parsed.Results {
			if res := &parsed.Results[i]; res.Status == rtstruct.Included && res.Number == roi.Number {
				res.Dropped += region.Dropped
			}
		}
	}

	report := &Report{Results: parsed.Results}
	affine := opts.Convention.Affine(grid)
	regions := asm.Regions()
	if opts.Separate {
		for i := range regions {
			path := opts.MaskPath(regions[i].Summary.Name)
			regions[i].Summary.OutFile = path
			if err := writeMask(path, regions[i].Volume, opts.Convention, affine); err != nil {
				return nil, err
			}
			report.Outputs = append(report.Outputs, path)
		}
	} else {
		path := opts.MaskPath("")
		for i := range regions {
			regions[i].Summary.OutFile = path
		}
		if err := writeMask(path, asm.Volumes()[0], opts.Convention, affine); err != nil {
			return nil, err
		}
		report.Outputs = append(report.Outputs, path)
	}

	for _, r := range regions {
		report.Regions = append(report.Regions, r.Summary)
	}
	if err := WriteSidecar(opts.SidecarPath(), report.Regions); err != nil {
		return nil, err
	}
	report.Outputs = append(report.Outputs, opts.SidecarPath())

	if err := writeStructure(ctx, opts.StructurePath(), s, opts.Convention, affine); err != nil {
		return nil, err
	}
	report.Outputs = append(report.Outputs, opts.StructurePath())
	for _, out := range report.Outputs {
		slog.InfoContext(ctx, "wrote output", "path", out)
	}
	return report, nil
}

func writeMask(path string, v *volume.Volume, conv geom.Convention, affine mat.Matrix) error {
	out := v.Clone()
	conv.FromLPS(out)
	img := nifti.New(out, affine, nifti.DTUint16)
	img.Header.SetDescription("rtssctl label mask")
	return nifti.WriteFile(path, img)
}

// writeStructure stores the image series with its modality rescale in the header
func writeStructure(ctx context.Context, path string, s *series.Series, conv geom.Convention, affine mat.Matrix) error {
	v, err := s.Volume(ctx)
	if err != nil {
		return err
	}
	datatype := nifti.DTUint16
	ref := s.Reference()
	switch signed, eight := dicom.GetPixelRepresentation(ref) == 1, dicom.GetBitsAllocated(ref) == 8; {
	case signed && eight:
		datatype = nifti.DTInt8
	case signed:
		datatype = nifti.DTInt16
	case eight:
		datatype = nifti.DTUint8
	}

	intercept, slope := s.Rescale()
	if slope == 0 {
		slope = 1
	}
	for i, raw := range v.Data {
		v.Data[i] = float32(float64(raw)*slope + intercept)
	}
	conv.FromLPS(v)
	img := nifti.New(v, affine, datatype)
	img.Header.SclSlope = float32(slope)
	img.Header.SclInter = float32(intercept)
	img.Header.SetDescription(dicom.GetModality(ref) + " " + s.SeriesInstanceUID())
	return nifti.WriteFile(path, img)
}
