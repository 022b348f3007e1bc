package cmd

import (
	"context"
	"log/slog"

	"github.com/jpfielding/rtss.go/pkg/series"
	"github.com/spf13/cobra"
)

// NewPhantomCmd writes a synthetic CT series for trying the converters
func NewPhantomCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phantom <out-dir>",
		Short: "write a synthetic CT series",
		Long:  "Writes an axial CT series with a bright sphere centred in the volume, one file per slice.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			rows, _ := f.GetInt("rows")
			cols, _ := f.GetInt("cols")
			slices, _ := f.GetInt("slices")
			spacing, _ := f.GetFloat64("spacing")
			thickness, _ := f.GetFloat64("slice-spacing")
			radius, _ := f.GetFloat64("radius")

			p := series.NewPhantom(rows, cols, slices)
			p.PixelSpacing = [2]float64{spacing, spacing}
			p.SliceSpacing = thickness
			p.Value = sphere(cols, rows, slices, radius)

			paths, err := p.WriteDir(args[0])
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "wrote phantom", "dir", args[0], "slices", len(paths), "series_uid", p.SeriesInstanceUID)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int("rows", 64, "image rows")
	f.Int("cols", 64, "image columns")
	f.Int("slices", 16, "number of slices")
	f.Float64("spacing", 1, "in-plane pixel spacing in mm")
	f.Float64("slice-spacing", 2.5, "slice spacing in mm")
	f.Float64("radius", 6, "sphere radius in voxels")
	return cmd
}

// sphere returns a Value func with 1000 inside the radius and 0 elsewhere
func sphere(w, h, d int, radius float64) func(x, y, z int) uint16 {
	cx, cy, cz := float64(w-1)/2, float64(h-1)/2, float64(d-1)/2
	return func(x, y, z int) uint16 {
		dx, dy, dz := float64(x)-cx, float64(y)-cy, float64(z)-cz
		if dx*dx+dy*dy+dz*dz <= radius*radius {
			return 1000
		}
		return 0
	}
}
