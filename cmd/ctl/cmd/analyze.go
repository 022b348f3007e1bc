package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jpfielding/rtss.go/pkg/dicom"
	"github.com/jpfielding/rtss.go/pkg/dicom/tag"
	"github.com/jpfielding/rtss.go/pkg/rtstruct"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze cobra command
func NewAnalyzeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze an RTSTRUCT or image file",
		Long:  "Displays key metadata and validation findings of a DICOM file. Structure sets list their ROIs, images their pixel data frames.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			dumpFrame, _ := cmd.Flags().GetInt("dump-frame")
			out, _ := cmd.Flags().GetString("out")

			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}

			if filePath == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}

			return runAnalyze(ctx, cmd.OutOrStdout(), filePath, dumpFrame, out)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file path to analyze")
	pf.Int("dump-frame", -1, "Index of frame to dump to disk")
	pf.String("out", "", "Output path for dumped frame")

	return cmd
}

func runAnalyze(ctx context.Context, w io.Writer, filePath string, dumpFrame int, outPath string) error {
	ds, err := dicom.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	fmt.Fprintf(w, "Total elements: %d\n\n", len(ds.Elements))

	fmt.Fprintln(w, "=== Key Metadata ===")
	fmt.Fprintf(w, "Modality: %s\n", dicom.GetModality(ds))
	fmt.Fprintf(w, "SOPClassUID: %s\n", dicom.GetString(ds, tag.SOPClassUID))
	fmt.Fprintf(w, "SeriesDescription: %s\n", dicom.GetSeriesDescription(ds))
	fmt.Fprintf(w, "FrameOfReferenceUID: %s\n", dicom.GetString(ds, tag.FrameOfReferenceUID))
	syntax := dicom.GetTransferSyntax(ds)
	fmt.Fprintf(w, "TransferSyntax: %s (%s)\n", syntax, syntax.Name())
	fmt.Fprintln(w)

	if dicom.IsRTStruct(ds) {
		return analyzeStructures(ctx, w, ds)
	}
	return analyzeImage(w, ds, dumpFrame, outPath)
}

func analyzeStructures(ctx context.Context, w io.Writer, ds *dicom.Dataset) error {
	printFindings(w, dicom.ValidateRTStruct(ds))

	s, report, err := rtstruct.Parse(ctx, ds, rtstruct.ParseOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "=== Structures ===")
	fmt.Fprintf(w, "Label: %s\n", s.Set.StructureSetLabel)
	fmt.Fprintf(w, "Referenced series: %s (%d images)\n\n", s.Referenced.SeriesInstanceUID, len(s.Referenced.Images))

	rois := map[int]rtstruct.ROI{}
	for _, roi := range s.ROIs {
		rois[roi.Number] = roi
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tNAME\tCOLOR\tCONTOURS\tPOINTS\tSTATUS")
	for _, res := range report.Results {
		roi := rois[res.Number]
		color := "-"
		if roi.Color != nil {
			color = roi.Color.Hex()
		}
		status := string(res.Status)
		switch {
		case res.Reason != nil:
			status += ": " + res.Reason.Error()
		case res.Dropped > 0:
			status += fmt.Sprintf(" (%d dropped)", res.Dropped)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", res.Number, res.Name, color, len(roi.Contours), roi.NumPoints(), status)
	}
	return tw.Flush()
}

func analyzeImage(w io.Writer, ds *dicom.Dataset, dumpFrame int, outPath string) error {
	if dicom.IsImage(ds) {
		printFindings(w, dicom.ValidateImage(ds))
	} else {
		for _, err := range dicom.QuickValidate(ds) {
			fmt.Fprintf(w, "  error: %v\n", err)
		}
	}
	fmt.Fprintf(w, "Rows: %d\n", dicom.GetRows(ds))
	fmt.Fprintf(w, "Columns: %d\n", dicom.GetColumns(ds))
	fmt.Fprintf(w, "BitsAllocated: %d\n", dicom.GetBitsAllocated(ds))
	fmt.Fprintf(w, "PixelRepresentation: %d (0=unsigned, 1=signed)\n", dicom.GetPixelRepresentation(ds))
	fmt.Fprintf(w, "NumberOfFrames: %d\n", dicom.GetNumberOfFrames(ds))
	intercept, slope := dicom.GetRescale(ds)
	fmt.Fprintf(w, "Rescale: slope=%g intercept=%g\n", slope, intercept)
	fmt.Fprintln(w)

	pd, err := ds.GetPixelData()
	if err != nil {
		fmt.Fprintf(w, "No pixel data: %v\n", err)
		return nil
	}

	fmt.Fprintln(w, "=== Pixel Data ===")
	fmt.Fprintf(w, "Frames: %d\n", len(pd.Frames))

	if dumpFrame >= 0 {
		if dumpFrame >= len(pd.Frames) {
			return fmt.Errorf("frame index %d out of bounds (0-%d)", dumpFrame, len(pd.Frames)-1)
		}
		fr := pd.Frames[dumpFrame]
		// little endian
		data := make([]byte, len(fr.Data)*2)
		for i, v := range fr.Data {
			data[i*2] = byte(v)
			data[i*2+1] = byte(v >> 8)
		}
		if outPath == "" {
			outPath = fmt.Sprintf("frame_%d.bin", dumpFrame)
		}
		fmt.Fprintf(w, "Dumping frame %d (%d bytes) to %s\n", dumpFrame, len(data), outPath)
		return os.WriteFile(outPath, data, 0644)
	}

	for i, fr := range pd.Frames {
		if len(fr.Data) == 0 {
			continue
		}
		lo, hi := fr.Data[0], fr.Data[0]
		for _, v := range fr.Data {
			lo, hi = min(lo, v), max(hi, v)
		}
		fmt.Fprintf(w, "Frame %d: %d pixels, min=%d max=%d\n", i, len(fr.Data), lo, hi)
	}
	return nil
}

func printFindings(w io.Writer, res dicom.ValidationResult) {
	if res.IsValid() && !res.HasWarnings() {
		fmt.Fprintln(w, "Validation: ok")
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "Validation: valid=%v errors=%d warnings=%d\n", res.IsValid(), len(res.Errors), len(res.Warnings))
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  error: %v\n", e)
	}
	for _, e := range res.Warnings {
		fmt.Fprintf(w, "  warning: %v\n", e)
	}
	fmt.Fprintln(w)
}
