// Package report renders run results for machines. The human side lives in
// the CLI; reports exist so automated harnesses can archive and diff runs.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"blkcheck/internal/exerciser"
)

// Report is the machine-readable record of one invocation.
type Report struct {
	RunID     string         `json:"run_id"`
	Tool      string         `json:"tool"`
	CreatedAt time.Time      `json:"created_at"`
	Devices   []DeviceReport `json:"devices"`
}

// DeviceReport records one device's run.
type DeviceReport struct {
	Path           string            `json:"path"`
	Pattern        string            `json:"pattern"`
	Seed           uint64            `json:"seed"`
	Offset         int64             `json:"offset"`
	Size           int64             `json:"size"`
	BlockSize      int               `json:"block_size"`
	Outcome        string            `json:"outcome"`
	State          string            `json:"state"`
	MismatchOffset int64             `json:"mismatch_offset"` // -1 if none
	Error          string            `json:"error,omitempty"`
	DurationMs     int64             `json:"duration_ms"`
	Iterations     []IterationReport `json:"iterations"`
}

// IterationReport records one write/read/verify cycle.
type IterationReport struct {
	Index          int    `json:"index"`
	Outcome        string `json:"outcome"`
	MismatchOffset int64  `json:"mismatch_offset"`
	WriteDigest    string `json:"write_digest"`
	ReadDigest     string `json:"read_digest"`
	BytesWritten   int64  `json:"bytes_written"`
	BytesRead      int64  `json:"bytes_read"`
	DurationMs     int64  `json:"duration_ms"`
}

// New returns an empty report with a fresh run ID.
func New() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Tool:      "blkcheck",
		CreatedAt: time.Now().UTC(),
	}
}

// RunParams carries the run parameters alongside the result.
type RunParams struct {
	Pattern   string
	Seed      uint64
	Offset    int64
	Size      int64
	BlockSize int
}

// Add appends the result of one device run.
func (r *Report) Add(res *exerciser.Result, params RunParams) {
	dev := DeviceReport{
		Path:           res.Path,
		Pattern:        params.Pattern,
		Seed:           params.Seed,
		Offset:         params.Offset,
		Size:           params.Size,
		BlockSize:      params.BlockSize,
		Outcome:        res.Outcome.String(),
		State:          res.State.String(),
		MismatchOffset: res.MismatchOffset,
		DurationMs:     res.Duration.Milliseconds(),
	}

	if res.Err != nil {
		dev.Error = res.Err.Error()
	}

	for _, it := range res.Iterations {
		dev.Iterations = append(dev.Iterations, IterationReport{
			Index:          it.Index,
			Outcome:        it.Outcome.String(),
			MismatchOffset: it.MismatchOffset,
			WriteDigest:    it.WriteDigest,
			ReadDigest:     it.ReadDigest,
			BytesWritten:   it.BytesWritten,
			BytesRead:      it.BytesRead,
			DurationMs:     it.Duration.Milliseconds(),
		})
	}

	r.Devices = append(r.Devices, dev)
}

// Save writes the report as indented JSON. The write is atomic so a
// harness never observes a half-written report.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}

	return nil
}

// FileName returns a timestamped default report name.
func FileName(now time.Time) string {
	return fmt.Sprintf("blkcheck-report-%s.json", now.Format("20060102-150405"))
}
