package cmd

import (
	"context"
	"log/slog"

	"github.com/jpfielding/rtss.go/pkg/convert"
	"github.com/jpfielding/rtss.go/pkg/rtstruct"
	"github.com/spf13/cobra"
)

// NewNifti2RTSSCmd contours a NIfTI label mask into an RTSTRUCT
func NewNifti2RTSSCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nifti2rtss <mask.nii[.gz]> <series-dir> <out.dcm>",
		Short: "contour a NIfTI mask into an RT structure set",
		Long:  "Traces the boundary of the non-zero voxels of every slice of a mask aligned with a DICOM series and writes the polygons as an RTSTRUCT referencing that series.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := cfg.EncodeOptions()
			if err != nil {
				return err
			}
			opts.MaskPath, opts.SeriesDir, opts.OutPath = args[0], args[1], args[2]

			f := cmd.Flags()
			if f.Changed("structure-label") {
				opts.StructureLabel, _ = f.GetString("structure-label")
			}
			if f.Changed("tolerance") {
				opts.Tolerance, _ = f.GetFloat64("tolerance")
			}
			if f.Changed("min-poly-pts") {
				opts.MinPoints, _ = f.GetInt("min-poly-pts")
			}
			if f.Changed("per-label") {
				opts.PerLabel, _ = f.GetBool("per-label")
			}
			if f.Changed("color") {
				s, _ := f.GetString("color")
				c, err := rtstruct.ParseColor(s)
				if err != nil {
					return err
				}
				opts.Color = &c
			}

			report, err := convert.NiftiToRTSS(ctx, opts)
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "wrote structure set", "path", opts.OutPath, "rois", len(report.Results), "dropped", report.Dropped())
			return record(ctx, cfg, gitsha, []string{opts.MaskPath, opts.SeriesDir}, report.Outputs...)
		},
	}
	def := convert.DefaultEncodeOptions()
	f := cmd.Flags()
	f.String("structure-label", def.StructureLabel, "StructureSetLabel of the new object")
	f.Float64("tolerance", def.Tolerance, "polygon simplification tolerance in mm, 0 keeps every vertex")
	f.Int("min-poly-pts", def.MinPoints, "drop polygons with fewer vertices")
	f.Bool("per-label", false, "one ROI per distinct mask value")
	f.String("color", "0,230,0", "ROI display color as r,g,b or 0xRRGGBB")
	return cmd
}
