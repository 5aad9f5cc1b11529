package build

import (
	"sync"
	"time"
)

// BuildMetrics tracks build performance
type BuildMetrics struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	SkippedBuilds    int64
	CacheHits        int64
	FilesWritten     int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	mutex            sync.RWMutex
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordBuild records a build result in the metrics. Skipped layouts count
// only as skipped.
func (bm *BuildMetrics) RecordBuild(result BuildResult) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	if result.Skipped {
		bm.SkippedBuilds++
		return
	}

	bm.TotalBuilds++
	bm.TotalDuration += result.Duration

	if result.CacheHit {
		bm.CacheHits++
	}
	if result.Written {
		bm.FilesWritten++
	}

	if result.Error != nil {
		bm.FailedBuilds++
	} else {
		bm.SuccessfulBuilds++
	}

	bm.AverageDuration = bm.TotalDuration / time.Duration(bm.TotalBuilds)
}

// GetSnapshot returns a snapshot of current metrics
func (bm *BuildMetrics) GetSnapshot() MetricsSnapshot {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	return MetricsSnapshot{
		TotalBuilds:      bm.TotalBuilds,
		SuccessfulBuilds: bm.SuccessfulBuilds,
		FailedBuilds:     bm.FailedBuilds,
		SkippedBuilds:    bm.SkippedBuilds,
		CacheHits:        bm.CacheHits,
		FilesWritten:     bm.FilesWritten,
		AverageDuration:  bm.AverageDuration,
		TotalDuration:    bm.TotalDuration,
	}
}

// Reset resets all metrics
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds = 0
	bm.SuccessfulBuilds = 0
	bm.FailedBuilds = 0
	bm.SkippedBuilds = 0
	bm.CacheHits = 0
	bm.FilesWritten = 0
	bm.AverageDuration = 0
	bm.TotalDuration = 0
}

// MetricsSnapshot is a point in time copy of BuildMetrics.
type MetricsSnapshot struct {
	TotalBuilds      int64         `json:"total_builds"`
	SuccessfulBuilds int64         `json:"successful_builds"`
	FailedBuilds     int64         `json:"failed_builds"`
	SkippedBuilds    int64         `json:"skipped_builds"`
	CacheHits        int64         `json:"cache_hits"`
	FilesWritten     int64         `json:"files_written"`
	AverageDuration  time.Duration `json:"average_duration_ns"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
}

// CacheHitRate returns the cache hit rate as a percentage
func (s MetricsSnapshot) CacheHitRate() float64 {
	if s.TotalBuilds == 0 {
		return 0.0
	}
	return float64(s.CacheHits) / float64(s.TotalBuilds) * 100.0
}

// SuccessRate returns the success rate as a percentage
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalBuilds == 0 {
		return 0.0
	}
	return float64(s.SuccessfulBuilds) / float64(s.TotalBuilds) * 100.0
}
