package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// CacheMaintenanceResult reports one sweep over the cache tiers.
type CacheMaintenanceResult struct {
	EntriesBefore  int  `json:"entries_before"`
	EntriesAfter   int  `json:"entries_after"`
	EntriesCleaned int  `json:"entries_cleaned"`
	Success        bool `json:"success"`
}

// MaintenanceResult reports a system-wide maintenance pass. Sub-step failures
// are collected rather than aborting the pass; Success is false if any
// sub-step failed.
type MaintenanceResult struct {
	Cache           CacheMaintenanceResult `json:"cache"`
	JobsCleaned     int                    `json:"jobs_cleaned"`
	AnalysesDeleted int64                  `json:"analyses_deleted"`
	Errors          []string               `json:"errors,omitempty"`
	Success         bool                   `json:"success"`
}

// DatabaseCounts are aggregate row counts for the health report.
type DatabaseCounts struct {
	Users           int64 `json:"users"`
	Posts           int64 `json:"posts"`
	Comments        int64 `json:"comments"`
	Analyses        int64 `json:"analyses"`
	RecentAnalyses  int64 `json:"recent_analyses"`
	RecentWindowSec int64 `json:"recent_window_seconds"`
}

// MemoryStats is a trimmed-down snapshot of process memory usage.
type MemoryStats struct {
	AllocBytes uint64 `json:"alloc_bytes"`
	SysBytes   uint64 `json:"sys_bytes"`
	Goroutines int    `json:"goroutines"`
}

// CacheTierStats reports both cache tiers.
type CacheTierStats struct {
	Fingerprint CacheStats `json:"fingerprint"`
	Job         CacheStats `json:"job"`
}

// SystemHealth composes pipeline load, database counts, process stats and
// cache stats. Status is "degraded" when any collaborator query failed; the
// failures are listed in Errors and the rest of the report is still filled.
type SystemHealth struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Queue         QueueStats     `json:"queue"`
	PipelineSteps []PipelineStep `json:"pipeline_steps"`
	Database      DatabaseCounts `json:"database"`
	Memory        MemoryStats    `json:"memory"`
	Caches        CacheTierStats `json:"caches"`
	Errors        []string       `json:"errors,omitempty"`
}

// StartMaintenance launches the background sweep loop. It fires every
// MaintenanceInterval, sweeping expired cache entries and dropping stale job
// bookkeeping, independently of request traffic. The returned stop is
// registered on the application so Shutdown can cancel the timer.
func StartMaintenance(a *Application) {
	interval := a.Config.MaintenanceInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx := context.Background()
				result := a.PerformCacheMaintenance(ctx)
				jobsCleaned := a.Pipeline.Cleanup(ctx, a.Config.JobRetention)
				slog.Debug("Maintenance sweep finished",
					"entries_cleaned", result.EntriesCleaned,
					"entries_after", result.EntriesAfter,
					"jobs_cleaned", jobsCleaned,
				)
			}
		}
	}()

	a.SetStopMaintenance(func() {
		ticker.Stop()
		close(done)
	})
}

// PerformCacheMaintenance sweeps expired entries from both cache tiers. Safe
// to call concurrently with request traffic; the underlying sweep never holds
// an exclusive lock across a full scan.
func (a *Application) PerformCacheMaintenance(ctx context.Context) CacheMaintenanceResult {
	before := a.Results.Len()
	cleaned := a.Results.Sweep()
	after := a.Results.Len()

	a.EventBus.Publish(BusMessage{
		Type:   BusMessageMaintenance,
		Detail: fmt.Sprintf("swept %d expired cache entries", cleaned),
	})

	return CacheMaintenanceResult{
		EntriesBefore:  before,
		EntriesAfter:   after,
		EntriesCleaned: cleaned,
		Success:        true,
	}
}

// PerformMaintenance runs the full pass: cache sweep, stale pipeline
// bookkeeping cleanup, and deletion of persisted analyses past retention.
// Each sub-step runs regardless of earlier failures.
func (a *Application) PerformMaintenance(ctx context.Context) MaintenanceResult {
	result := MaintenanceResult{
		Cache: a.PerformCacheMaintenance(ctx),
	}

	result.JobsCleaned = a.Pipeline.Cleanup(ctx, a.Config.JobRetention)

	cutoff := time.Now().UTC().Add(-a.Config.AnalysisRetention)
	deleted, err := a.DB.DeleteAnalysesOlderThan(ctx, pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		log(ctx).Error("Failed to delete aged analyses", "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("delete aged analyses: %v", err))
	} else {
		result.AnalysesDeleted = deleted
	}

	result.Success = len(result.Errors) == 0
	log(ctx).Info("Maintenance pass finished",
		"entries_cleaned", result.Cache.EntriesCleaned,
		"jobs_cleaned", result.JobsCleaned,
		"analyses_deleted", result.AnalysesDeleted,
		"success", result.Success,
	)
	return result
}

// GetSystemHealth builds the composite health report.
func (a *Application) GetSystemHealth(ctx context.Context) SystemHealth {
	health := SystemHealth{
		Status:        "ok",
		UptimeSeconds: time.Since(a.StartedAt).Seconds(),
		Queue:         a.Pipeline.QueueStats(ctx),
		PipelineSteps: a.Pipeline.Steps(),
	}

	health.Database.RecentWindowSec = int64(a.Config.RecentWindow.Seconds())
	counts := []struct {
		name  string
		query func(context.Context) (int64, error)
		dest  *int64
	}{
		{"users", a.DB.CountUsers, &health.Database.Users},
		{"posts", a.DB.CountPosts, &health.Database.Posts},
		{"comments", a.DB.CountComments, &health.Database.Comments},
		{"analyses", a.DB.CountAnalyses, &health.Database.Analyses},
	}
	for _, c := range counts {
		n, err := c.query(ctx)
		if err != nil {
			health.Errors = append(health.Errors, fmt.Sprintf("count %s: %v", c.name, err))
			continue
		}
		*c.dest = n
	}

	since := time.Now().UTC().Add(-a.Config.RecentWindow)
	recent, err := a.DB.CountAnalysesAfterTimestamp(ctx, pgtype.Timestamptz{Time: since, Valid: true})
	if err != nil {
		health.Errors = append(health.Errors, fmt.Sprintf("count recent analyses: %v", err))
	} else {
		health.Database.RecentAnalyses = recent
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	health.Memory = MemoryStats{
		AllocBytes: mem.Alloc,
		SysBytes:   mem.Sys,
		Goroutines: runtime.NumGoroutine(),
	}

	health.Caches.Fingerprint, health.Caches.Job = a.Results.Stats()

	if len(health.Errors) > 0 {
		health.Status = "degraded"
	}
	return health
}

// UpdateCacheConfig merges a partial config into both cache tiers and
// returns the merged config. A lowered size cap takes effect on the next
// insertion rather than evicting eagerly.
func (a *Application) UpdateCacheConfig(patch CacheConfigPatch) CacheConfig {
	merged := a.Results.UpdateConfig(patch)
	slog.Info("Cache configuration updated",
		"enable_caching", merged.EnableCaching,
		"cache_ttl", merged.CacheTTL,
		"max_cache_size", merged.MaxCacheSize,
	)
	return merged
}

// ClearCache unconditionally empties every cache tier. Operator-triggered.
func (a *Application) ClearCache() {
	a.Results.Clear()
	a.EventBus.Publish(BusMessage{Type: BusMessageCacheCleared})
	slog.Info("Caches cleared")
}

// Shutdown stops the maintenance timer, the pipeline and any outstanding
// cache write-back pollers. Idempotent.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(func() {
		if a.stopMaintenance != nil {
			a.stopMaintenance()
		}
		if a.stopPipeline != nil {
			a.stopPipeline()
		}
		if a.Results != nil {
			a.Results.Close()
		}
		slog.Info("Core subsystems stopped")
	})
}
