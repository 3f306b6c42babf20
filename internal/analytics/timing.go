package analytics

import (
	"math"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
)

// Bucket edges in hours. Intervals are right-closed: (0, 0.1667], (0.1667, 1], ...
var (
	timingEdges  = []float64{0, 0.1667, 1, 5, 24, math.Inf(1)}
	TimingLabels = []string{"<10 mins", "10m-1h", "1-5h", "5-24h", ">24h"}
)

type TimingBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TimingSummary describes how long after scheduling appointments were cancelled.
// Samples counts every computable elapsed time; Unbucketed counts the
// non-positive ones, which feed the statistics but no bucket.
type TimingSummary struct {
	Buckets     []TimingBucket `json:"buckets"`
	Samples     int            `json:"samples"`
	Unbucketed  int            `json:"unbucketed"`
	MeanHours   float64        `json:"mean_hours"`
	MedianHours float64        `json:"median_hours"`
	MaxHours    float64        `json:"max_hours"`
}

// ElapsedHours returns canceled minus created in hours for cancelled records
// that carry both timestamps.
func ElapsedHours(records []model.AppointmentRecord) []float64 {
	hours := make([]float64, 0)
	for _, r := range records {
		if !r.IsCancelled() || r.CreatedDate == nil || r.CanceledDate == nil {
			continue
		}
		h := r.CanceledDate.Sub(*r.CreatedDate).Hours()
		if math.IsNaN(h) || math.IsInf(h, 0) {
			continue
		}
		hours = append(hours, h)
	}
	return hours
}

// BucketLabel returns the label for an elapsed time, or "" when h <= 0.
func BucketLabel(h float64) string {
	for i := 1; i < len(timingEdges); i++ {
		if h > timingEdges[i-1] && h <= timingEdges[i] {
			return TimingLabels[i-1]
		}
	}
	return ""
}

// TimeToCancellation buckets elapsed scheduling-to-cancellation times. With no
// computable samples the bucket list is empty.
func TimeToCancellation(records []model.AppointmentRecord) TimingSummary {
	hours := ElapsedHours(records)
	summary := TimingSummary{Buckets: []TimingBucket{}, Samples: len(hours)}
	if len(hours) == 0 {
		return summary
	}

	counts := make(map[string]int, len(TimingLabels))
	for _, h := range hours {
		label := BucketLabel(h)
		if label == "" {
			summary.Unbucketed++
			continue
		}
		counts[label]++
	}
	for _, label := range TimingLabels {
		summary.Buckets = append(summary.Buckets, TimingBucket{Label: label, Count: counts[label]})
	}

	summary.MeanHours = mean(hours)
	summary.MedianHours = median(hours)
	summary.MaxHours = maxOf(hours)
	return summary
}
