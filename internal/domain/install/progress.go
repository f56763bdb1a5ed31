package install

import "fmt"

// Progress is an informational event emitted during download and installation.
type Progress struct {
	// Percentage is in [0, 100]. It stays at 0 when the total size is unknown.
	Percentage float64 `json:"percentage"`
	// Status is a human-readable description of the current phase.
	Status string `json:"status"`
}

// Status messages emitted by the install pipeline.
const (
	StatusDownloadStarted  = "Downloading..."
	StatusDownloadComplete = "Download complete. Unzipping..."
	StatusInstallComplete  = "Installation complete!"
)

// Downloading builds the per-chunk event for the given percentage.
func Downloading(percentage float64) Progress {
	return Progress{
		Percentage: percentage,
		Status:     fmt.Sprintf("Downloading... %.2f%%", percentage),
	}
}
