package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func d(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestRangesOverlap(t *testing.T) {
	tests := []struct {
		name                       string
		aFrom, aTo, bFrom, bTo     *time.Time
		want                       bool
	}{
		{"disjoint before", d("2025-01-01"), d("2025-03-31"), d("2025-04-01"), d("2025-06-30"), false},
		{"disjoint after", d("2025-04-01"), d("2025-06-30"), d("2025-01-01"), d("2025-03-31"), false},
		{"shared single day", d("2025-01-01"), d("2025-03-31"), d("2025-03-31"), d("2025-06-30"), true},
		{"contained", d("2025-02-01"), d("2025-02-28"), d("2025-01-01"), d("2025-12-31"), true},
		{"identical", d("2025-01-01"), d("2025-03-31"), d("2025-01-01"), d("2025-03-31"), true},
		{"partial", d("2025-01-01"), d("2025-05-01"), d("2025-03-01"), d("2025-08-01"), true},
		{"both fully open", nil, nil, nil, nil, true},
		{"open vs bounded", nil, nil, d("2025-01-01"), d("2025-03-31"), true},
		{"open start overlaps", nil, d("2025-02-01"), d("2025-01-15"), d("2025-06-30"), true},
		{"open start disjoint", nil, d("2025-02-01"), d("2025-02-02"), d("2025-06-30"), false},
		{"open end overlaps", d("2025-05-01"), nil, d("2025-01-01"), d("2025-05-01"), true},
		{"open end disjoint", d("2025-05-02"), nil, d("2025-01-01"), d("2025-05-01"), false},
		{"two open ends meet", nil, d("2025-03-01"), d("2025-03-01"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RangesOverlap(tt.aFrom, tt.aTo, tt.bFrom, tt.bTo)
			assert.Equal(t, tt.want, got)
			// Overlap is symmetric.
			assert.Equal(t, tt.want, RangesOverlap(tt.bFrom, tt.bTo, tt.aFrom, tt.aTo))
		})
	}
}

func TestBOMGoverning(t *testing.T) {
	assert.False(t, (&BOM{WorkflowState: StateDraft}).Governing())
	assert.True(t, (&BOM{WorkflowState: StateApproved}).Governing())
	assert.True(t, (&BOM{WorkflowState: StateActive}).Governing())
	assert.False(t, (&BOM{WorkflowState: StateArchived}).Governing())
}
