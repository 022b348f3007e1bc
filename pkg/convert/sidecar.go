package convert

import (
	"encoding/json"
	"fmt"
	"os"
)

// ROISummary is the sidecar record of one included ROI
type ROISummary struct {
	Number       int     `json:"roi_number"`
	Name         string  `json:"roi_name"`
	DisplayColor *string `json:"display_color"`
	NumContours  int     `json:"num_contours"`
	Points       int     `json:"points_in_all_contours"`
	Label        int     `json:"intensity_value"`
	OutFile      string  `json:"out_file_root"`
	VolumeMM3    float64 `json:"volume_mm3"`
}

// WriteSidecar stores the summaries as an indented JSON array
func WriteSidecar(path string, summaries []ROISummary) error {
	if summaries == nil {
		summaries = []ROISummary{}
	}
	b, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ReadSidecar loads summaries written by WriteSidecar
func ReadSidecar(path string) ([]ROISummary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []ROISummary
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
