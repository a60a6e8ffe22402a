package entities

import (
	"fmt"
	"strconv"
)

type ReconciliationStatus string

const (
	StatusPending ReconciliationStatus = "PENDING"
	StatusRunning ReconciliationStatus = "RUNNING"
	StatusSuccess ReconciliationStatus = "SUCCESS"
	StatusFailed  ReconciliationStatus = "FAILED"
)

// Known reports whether the backend status is one the dashboard styles explicitly.
func (s ReconciliationStatus) Known() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

func (s ReconciliationStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

type ReconciliationMethod string

const (
	MethodExactMatch         ReconciliationMethod = "EXACT_MATCH"
	MethodProbabilisticMatch ReconciliationMethod = "PROBABILISTIC_MATCH"
)

// ReconciliationResult is keyed by mapping id. Status fields arrive first;
// counts and sample paths are merged once the run reports SUCCESS.
type ReconciliationResult struct {
	ReconciliationID     string               `json:"reconciliationId"`
	Status               ReconciliationStatus `json:"status"`
	Message              string               `json:"message,omitempty"`
	ReconciliationMethod ReconciliationMethod `json:"reconciliationMethod,omitempty"`
	ExecutionTimestamp   string               `json:"executionTimestamp,omitempty"`

	LeftFileRowCount           *int64 `json:"leftFileRowCount,omitempty"`
	RightFileRowCount          *int64 `json:"rightFileRowCount,omitempty"`
	CommonRowCount             *int64 `json:"commonRowCount,omitempty"`
	LeftFileExclusiveRowCount  *int64 `json:"leftFileExclusiveRowCount,omitempty"`
	RightFileExclusiveRowCount *int64 `json:"rightFileExclusiveRowCount,omitempty"`

	SampleCommonRowsS3Path         string `json:"sampleCommonRowsS3Path,omitempty"`
	SampleExclusiveLeftRowsS3Path  string `json:"sampleExclusiveLeftRowsS3Path,omitempty"`
	SampleExclusiveRightRowsS3Path string `json:"sampleExclusiveRightRowsS3Path,omitempty"`
}

// StatusUpdate is what the status endpoint reports.
type StatusUpdate struct {
	Status               ReconciliationStatus `json:"status"`
	Message              string               `json:"message,omitempty"`
	ExecutionTimestamp   string               `json:"executionTimestamp,omitempty"`
	ReconciliationMethod ReconciliationMethod `json:"reconciliationMethod,omitempty"`
}

// ApplyStatus overwrites the status-derived fields. Empty optional fields
// in the update leave the known values alone.
func (r *ReconciliationResult) ApplyStatus(u StatusUpdate) {
	r.Status = u.Status
	r.Message = u.Message
	if u.ExecutionTimestamp != "" {
		r.ExecutionTimestamp = u.ExecutionTimestamp
	}
	if u.ReconciliationMethod != "" {
		r.ReconciliationMethod = u.ReconciliationMethod
	}
}

// MergeDetails unions a full result into r: every field present in full
// replaces r's value, absent fields keep what r already knows.
func (r *ReconciliationResult) MergeDetails(full ReconciliationResult) {
	if full.Status != "" {
		r.Status = full.Status
	}
	if full.Message != "" {
		r.Message = full.Message
	}
	if full.ReconciliationMethod != "" {
		r.ReconciliationMethod = full.ReconciliationMethod
	}
	if full.ExecutionTimestamp != "" {
		r.ExecutionTimestamp = full.ExecutionTimestamp
	}
	mergeCount(&r.LeftFileRowCount, full.LeftFileRowCount)
	mergeCount(&r.RightFileRowCount, full.RightFileRowCount)
	mergeCount(&r.CommonRowCount, full.CommonRowCount)
	mergeCount(&r.LeftFileExclusiveRowCount, full.LeftFileExclusiveRowCount)
	mergeCount(&r.RightFileExclusiveRowCount, full.RightFileExclusiveRowCount)
	if full.SampleCommonRowsS3Path != "" {
		r.SampleCommonRowsS3Path = full.SampleCommonRowsS3Path
	}
	if full.SampleExclusiveLeftRowsS3Path != "" {
		r.SampleExclusiveLeftRowsS3Path = full.SampleExclusiveLeftRowsS3Path
	}
	if full.SampleExclusiveRightRowsS3Path != "" {
		r.SampleExclusiveRightRowsS3Path = full.SampleExclusiveRightRowsS3Path
	}
}

func mergeCount(dst **int64, src *int64) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

// Clone deep-copies the count pointers.
func (r ReconciliationResult) Clone() ReconciliationResult {
	out := r
	out.LeftFileRowCount = copyCount(r.LeftFileRowCount)
	out.RightFileRowCount = copyCount(r.RightFileRowCount)
	out.CommonRowCount = copyCount(r.CommonRowCount)
	out.LeftFileExclusiveRowCount = copyCount(r.LeftFileExclusiveRowCount)
	out.RightFileExclusiveRowCount = copyCount(r.RightFileExclusiveRowCount)
	return out
}

func copyCount(c *int64) *int64 {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

// PreviewsEnabled is false for probabilistic runs, which have no row samples.
func (r ReconciliationResult) PreviewsEnabled() bool {
	return r.ReconciliationMethod != MethodProbabilisticMatch
}

// SamplePath returns the locator for a category, empty when the category has no sample.
func (r ReconciliationResult) SamplePath(c PreviewCategory) string {
	switch c {
	case CategoryCommon:
		return r.SampleCommonRowsS3Path
	case CategoryLeftExclusive:
		return r.SampleExclusiveLeftRowsS3Path
	case CategoryRightExclusive:
		return r.SampleExclusiveRightRowsS3Path
	}
	return ""
}

func (r ReconciliationResult) HasSample(c PreviewCategory) bool {
	return r.SamplePath(c) != ""
}

// CountLabel renders an optional count; absence is "N/A", never 0.
func CountLabel(c *int64) string {
	if c == nil {
		return "N/A"
	}
	return strconv.FormatInt(*c, 10)
}

// MatchPercentage is common rows over the larger side's row count.
// ok is false when a count is missing or the denominator is zero.
func (r ReconciliationResult) MatchPercentage() (float64, bool) {
	if r.CommonRowCount == nil || (r.LeftFileRowCount == nil && r.RightFileRowCount == nil) {
		return 0, false
	}
	var denom int64
	if r.LeftFileRowCount != nil {
		denom = *r.LeftFileRowCount
	}
	if r.RightFileRowCount != nil && *r.RightFileRowCount > denom {
		denom = *r.RightFileRowCount
	}
	if denom <= 0 {
		return 0, false
	}
	return float64(*r.CommonRowCount) * 100 / float64(denom), true
}

// ShareOf returns count as a percentage of the larger of the two file row counts.
func (r ReconciliationResult) ShareOf(count *int64) string {
	if count == nil {
		return "N/A"
	}
	var denom int64 = 1
	if r.LeftFileRowCount != nil && *r.LeftFileRowCount > denom {
		denom = *r.LeftFileRowCount
	}
	if r.RightFileRowCount != nil && *r.RightFileRowCount > denom {
		denom = *r.RightFileRowCount
	}
	return fmt.Sprintf("%.1f%%", float64(*count)*100/float64(denom))
}
