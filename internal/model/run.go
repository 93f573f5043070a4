package model

import (
	"math"
	"time"
)

// RunStatus represents the current state of a dedup run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded invocation of the engine.
type Run struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	Status    RunStatus `json:"status"`
	Stats     *Stats    `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes one pass of the engine over a record set.
type Stats struct {
	InputCount           int         `json:"input_count"`
	OutputCount          int         `json:"output_count"`
	RemovedCount         int         `json:"removed_count"`
	RemovedPercentage    float64     `json:"removed_percentage"`
	ClusterSizeHistogram map[int]int `json:"cluster_size_histogram"`
	ExactGroups          int         `json:"exact_groups"`
	BatchesDispatched    int         `json:"batches_dispatched"`
	UnclusteredBatches   int         `json:"unclustered_batches"`
	Truncated            bool        `json:"truncated"`
	InvalidRecordCount   int         `json:"invalid_record_count"`
	FilteredCount        int         `json:"filtered_count"`
}

// RemovedPercent returns removed/input as a percentage rounded to two
// decimals, or 0 for an empty input.
func RemovedPercent(input, removed int) float64 {
	if input == 0 {
		return 0
	}
	return math.Round(float64(removed)/float64(input)*100*100) / 100
}
