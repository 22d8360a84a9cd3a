// internal/models/models.go
package models

import (
	"time"

	"silicoshield/pkg/imaging"
)

// ImageStatus is the lifecycle state of an uploaded image.
type ImageStatus string

const (
	StatusPending   ImageStatus = "pending"
	StatusAnalyzing ImageStatus = "analyzing"
	StatusCompleted ImageStatus = "completed"
)

// Severity qualifies a positive detection. Absent when the detection
// flag is false.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// AnalysisResult is the parsed outcome of one prediction call.
type AnalysisResult struct {
	HasSilicosis    bool     `json:"hasSilicosis"`
	Confidence      int      `json:"confidence"` // 0-100
	Severity        Severity `json:"severity,omitempty"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
}

// UploadedImage is one user-submitted file under analysis. The raw bytes
// live in memory only; nothing is written to durable storage. Result is
// present exactly when Status is completed.
type UploadedImage struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	ContentType string           `json:"content_type"`
	Size        int64            `json:"size"`
	Data        []byte           `json:"-"`
	Preview     *imaging.Preview `json:"-"`
	Status      ImageStatus      `json:"status"`
	UploadedAt  time.Time        `json:"uploaded_at"`
	Result      *AnalysisResult  `json:"result,omitempty"`
}

// LocationSource tells how a location was obtained.
type LocationSource string

const (
	SourceGPS LocationSource = "gps"
	SourceIP  LocationSource = "ip"
)

// LocationData is a best-effort user location, immutable once resolved.
type LocationData struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	City      string         `json:"city,omitempty"`
	State     string         `json:"state,omitempty"`
	Country   string         `json:"country,omitempty"`
	Source    LocationSource `json:"source"`
}

// Hospital is a recommended facility, produced fresh on each lookup.
type Hospital struct {
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Phone    string  `json:"phone,omitempty"`
	Distance float64 `json:"distance"` // kilometers
	Type     string  `json:"type"`
}

// Overview aggregates completed analyses for the dashboard.
type Overview struct {
	TotalAnalyzed int `json:"total_analyzed"`
	PositiveCount int `json:"positive_count"`
	NegativeCount int `json:"negative_count"`
	AvgConfidence int `json:"avg_confidence"`
	SevereCases   int `json:"severe_cases"`
}

// BuildOverview computes dashboard statistics over completed images.
func BuildOverview(images []*UploadedImage) Overview {
	var o Overview
	sum := 0
	for _, img := range images {
		if img.Status != StatusCompleted || img.Result == nil {
			continue
		}
		o.TotalAnalyzed++
		sum += img.Result.Confidence
		if img.Result.HasSilicosis {
			o.PositiveCount++
		} else {
			o.NegativeCount++
		}
		if img.Result.Severity == SeveritySevere {
			o.SevereCases++
		}
	}
	if o.TotalAnalyzed > 0 {
		o.AvgConfidence = int(float64(sum)/float64(o.TotalAnalyzed) + 0.5)
	}
	return o
}
