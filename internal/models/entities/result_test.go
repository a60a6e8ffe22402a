package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func count(v int64) *int64 { return &v }

func TestReconciliationResult_MergeDetailsIsUnion(t *testing.T) {
	r := ReconciliationResult{
		Status:             StatusSuccess,
		Message:            "done",
		ExecutionTimestamp: "2024-01-01T00:00:00Z",
		CommonRowCount:     count(3),
	}

	r.MergeDetails(ReconciliationResult{
		LeftFileRowCount:       count(10),
		SampleCommonRowsS3Path: "s3://bucket/common",
	})

	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, "done", r.Message)
	assert.Equal(t, "2024-01-01T00:00:00Z", r.ExecutionTimestamp)
	assert.Equal(t, int64(3), *r.CommonRowCount)
	assert.Equal(t, int64(10), *r.LeftFileRowCount)
	assert.Nil(t, r.RightFileRowCount)
	assert.True(t, r.HasSample(CategoryCommon))
	assert.False(t, r.HasSample(CategoryLeftExclusive))
}

func TestReconciliationResult_ApplyStatusKeepsKnownOptionalFields(t *testing.T) {
	r := ReconciliationResult{ReconciliationMethod: MethodExactMatch, ExecutionTimestamp: "t1"}

	r.ApplyStatus(StatusUpdate{Status: StatusRunning, Message: "working"})

	assert.Equal(t, StatusRunning, r.Status)
	assert.Equal(t, "working", r.Message)
	assert.Equal(t, MethodExactMatch, r.ReconciliationMethod)
	assert.Equal(t, "t1", r.ExecutionTimestamp)
}

func TestReconciliationResult_CloneIsDeep(t *testing.T) {
	r := ReconciliationResult{CommonRowCount: count(1)}
	c := r.Clone()
	*c.CommonRowCount = 99

	assert.Equal(t, int64(1), *r.CommonRowCount)
}

func TestCountLabel(t *testing.T) {
	assert.Equal(t, "N/A", CountLabel(nil))
	assert.Equal(t, "0", CountLabel(count(0)))
	assert.Equal(t, "42", CountLabel(count(42)))
}

func TestMatchPercentage(t *testing.T) {
	r := ReconciliationResult{LeftFileRowCount: count(10), RightFileRowCount: count(20), CommonRowCount: count(5)}
	pct, ok := r.MatchPercentage()
	assert.True(t, ok)
	assert.InDelta(t, 25.0, pct, 0.0001)

	zero := ReconciliationResult{LeftFileRowCount: count(0), RightFileRowCount: count(0), CommonRowCount: count(0)}
	_, ok = zero.MatchPercentage()
	assert.False(t, ok)

	missing := ReconciliationResult{LeftFileRowCount: count(10)}
	_, ok = missing.MatchPercentage()
	assert.False(t, ok)
}

func TestShareOf(t *testing.T) {
	r := ReconciliationResult{LeftFileRowCount: count(200), RightFileRowCount: count(100)}

	assert.Equal(t, "25.0%", r.ShareOf(count(50)))
	assert.Equal(t, "N/A", r.ShareOf(nil))
	assert.Equal(t, "300.0%", ReconciliationResult{}.ShareOf(count(3)))
}

func TestPreviewsEnabled(t *testing.T) {
	assert.True(t, ReconciliationResult{ReconciliationMethod: MethodExactMatch}.PreviewsEnabled())
	assert.True(t, ReconciliationResult{}.PreviewsEnabled())
	assert.False(t, ReconciliationResult{ReconciliationMethod: MethodProbabilisticMatch}.PreviewsEnabled())
}

func TestReconciliationStatus(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, ReconciliationStatus("QUEUED").Known())
}

func TestParsePreviewCategory(t *testing.T) {
	c, err := ParsePreviewCategory("rightExclusive")
	assert.NoError(t, err)
	assert.Equal(t, CategoryRightExclusive, c)

	_, err = ParsePreviewCategory("both")
	assert.Error(t, err)
}
