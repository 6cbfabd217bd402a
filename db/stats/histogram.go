// Package stats provides optimizer-style selectivity estimators over a
// table's columns. It is deliberately outside the core: nothing in db
// imports it, and nothing here depends on a HeapFile or buffer pool —
// only on the BoolOp vocabulary a predicate is expressed in.
package stats

import (
	"fmt"

	boom "github.com/tylertreat/BoomFilters"

	"github.com/turinglake/heapdb/db"
)

// IntHistogram is a fixed equi-width histogram over an INT column's value
// range, used to estimate the fraction of rows a comparison predicate would
// select without actually scanning the table.
type IntHistogram struct {
	buckets  []int64
	min, max int64
	width    float64
	count    int64
}

// NewIntHistogram creates a histogram with nBins equal-width buckets
// covering [vMin, vMax] inclusive.
func NewIntHistogram(nBins int64, vMin int64, vMax int64) (*IntHistogram, error) {
	if nBins <= 0 {
		return nil, fmt.Errorf("stats: nBins must be positive, got %d", nBins)
	}
	if vMax < vMin {
		return nil, fmt.Errorf("stats: vMax %d is less than vMin %d", vMax, vMin)
	}
	return &IntHistogram{
		buckets: make([]int64, nBins),
		min:     vMin,
		max:     vMax,
		width:   float64(vMax-vMin+1) / float64(nBins),
	}, nil
}

func (h *IntHistogram) bucketOf(v int64) int {
	if v <= h.min {
		return 0
	}
	if v >= h.max {
		return len(h.buckets) - 1
	}
	idx := int(float64(v-h.min) / h.width)
	if idx >= len(h.buckets) {
		idx = len(h.buckets) - 1
	}
	return idx
}

// AddValue records one occurrence of v.
func (h *IntHistogram) AddValue(v int64) {
	h.buckets[h.bucketOf(v)]++
	h.count++
}

// EstimateSelectivity returns the estimated fraction of recorded values for
// which `value op v` holds.
func (h *IntHistogram) EstimateSelectivity(op db.BoolOp, v int64) float64 {
	if h.count == 0 {
		return 0
	}
	switch op {
	case db.OpEq:
		if v < h.min || v > h.max {
			return 0
		}
		height := h.buckets[h.bucketOf(v)]
		return (float64(height) / h.width) / float64(h.count)
	case db.OpGt:
		return h.estimateGreaterThan(v)
	case db.OpGe:
		return h.estimateGreaterThan(v - 1)
	case db.OpLt:
		return 1.0 - h.estimateGreaterThan(v-1) - h.EstimateSelectivity(db.OpEq, v)
	case db.OpLe:
		return 1.0 - h.estimateGreaterThan(v)
	case db.OpNeq:
		return 1.0 - h.EstimateSelectivity(db.OpEq, v)
	default:
		return 1.0
	}
}

func (h *IntHistogram) estimateGreaterThan(v int64) float64 {
	if v < h.min {
		return 1.0
	}
	if v >= h.max {
		return 0.0
	}
	b := h.bucketOf(v)
	bucketRight := h.min + int64(float64(b+1)*h.width)
	fracInBucket := float64(bucketRight-v) / h.width
	sel := fracInBucket * float64(h.buckets[b]) / float64(h.count)
	for i := b + 1; i < len(h.buckets); i++ {
		sel += float64(h.buckets[i]) / float64(h.count)
	}
	return sel
}

// StringHistogram estimates selectivity over a STRING column via a
// count-min sketch rather than ordered buckets: strings don't have the
// dense numeric range equi-width buckets need, but an approximate
// frequency count per distinct value is enough for OpEq/OpNeq estimation.
type StringHistogram struct {
	cms   *boom.CountMinSketch
	count int64
}

// NewStringHistogram creates a StringHistogram backed by a count-min sketch
// with a 0.1% error rate at 99.9% confidence.
func NewStringHistogram() (*StringHistogram, error) {
	return &StringHistogram{cms: boom.NewCountMinSketch(0.001, 0.999)}, nil
}

// AddValue records one occurrence of s.
func (h *StringHistogram) AddValue(s string) {
	h.cms.Add([]byte(s))
	h.count++
}

// EstimateSelectivity returns the estimated fraction of recorded values for
// which `value op s` holds. Only OpEq and OpNeq are meaningful over a
// frequency sketch; other operators return 1.0 (no estimate).
func (h *StringHistogram) EstimateSelectivity(op db.BoolOp, s string) float64 {
	if h.count == 0 {
		return 0
	}
	switch op {
	case db.OpEq:
		return float64(h.cms.Count([]byte(s))) / float64(h.count)
	case db.OpNeq:
		return 1.0 - float64(h.cms.Count([]byte(s)))/float64(h.count)
	default:
		return 1.0
	}
}
