package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jpfielding/rtss.go/pkg/convert"
	"github.com/jpfielding/rtss.go/pkg/geom"
	"github.com/jpfielding/rtss.go/pkg/rtstruct"
	"github.com/spf13/cobra"
)

// NewRTSS2NiftiCmd rasterizes the ROIs of an RTSTRUCT onto its image series
func NewRTSS2NiftiCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rtss2nifti <rtss.dcm> <series-dir> <out-root>",
		Short: "rasterize an RT structure set into NIfTI masks",
		Long:  "Fills the contours of every ROI onto the grid of the referenced series and writes a label mask, a JSON summary of the ROIs and the series itself as NIfTI.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts := cfg.DecodeOptions()
			opts.RTSSPath, opts.SeriesDir, opts.OutRoot = args[0], args[1], args[2]

			f := cmd.Flags()
			opts.StructPath, _ = f.GetString("out-struct")
			if f.Changed("exclude-labels") {
				opts.Exclude = nil
				s, _ := f.GetString("exclude-labels")
				for _, name := range strings.Split(s, ",") {
					if name = strings.TrimSpace(name); name != "" {
						opts.Exclude = append(opts.Exclude, name)
					}
				}
			}
			if f.Changed("separate-masks") {
				opts.Separate, _ = f.GetBool("separate-masks")
			}
			if f.Changed("gzip") {
				opts.Compress, _ = f.GetBool("gzip")
			}
			if f.Changed("holes") {
				opts.Holes, _ = f.GetBool("holes")
			}
			if f.Changed("ras") {
				opts.Convention = geom.Convention{}
				if ras, _ := f.GetBool("ras"); ras {
					opts.Convention = geom.Convention{FlipX: true, FlipY: true}
				}
			}

			report, err := convert.RTSSToNifti(ctx, opts)
			if err != nil {
				return err
			}
			rois := rtstruct.Report{Results: report.Results}
			slog.InfoContext(ctx, "wrote masks",
				"included", rois.Count(rtstruct.Included),
				"excluded", rois.Count(rtstruct.Excluded),
				"skipped", rois.Count(rtstruct.Skipped),
				"dropped", report.Dropped(),
			)
			return record(ctx, cfg, gitsha, []string{opts.RTSSPath, opts.SeriesDir}, report.Outputs...)
		},
	}
	f := cmd.Flags()
	f.String("out-struct", "", "path of the image volume, defaults to <out-root>_struct.nii")
	f.String("exclude-labels", "", "comma separated ROI names to leave out")
	f.Bool("separate-masks", false, "one binary mask per ROI")
	f.Bool("gzip", false, "write .nii.gz")
	f.Bool("holes", false, "subtract contours nested inside others on the same slice")
	f.Bool("ras", false, "write images in RAS voxel order")
	return cmd
}
