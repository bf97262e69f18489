// Package resources derives and enforces the resource budget a scan runs
// under: how much process memory it may use, how aggressively it may drive
// the CPU, how long to pause between blocks, and how deep the cross-block
// reconstruction buffer may be. Budgets are derived from measured system
// memory at construction time, never hardcoded.
package resources

import (
	"errors"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ErrBudgetExceeded reports that the scan's memory ceiling was exceeded even
// after a cache cleanup attempt. It is surfaced distinctly from I/O errors so
// a caller can retry with a lower-memory profile.
var ErrBudgetExceeded = errors.New("memory budget exceeded")

// Profile selects one of the canonical resource presets.
type Profile string

const (
	// ProfilePerformance targets 75% of total memory with no CPU limit.
	ProfilePerformance Profile = "performance"

	// ProfileBalanced targets 50% of total memory with an advisory 80%
	// CPU limit.
	ProfileBalanced Profile = "balanced"

	// ProfileLow targets 25% of total memory, an advisory 50% CPU limit,
	// and a small inter-block delay.
	ProfileLow Profile = "low"
)

// Fallback figures used when system memory cannot be measured.
const (
	fallbackTotalMB = 8192
	fallbackFreeMB  = 4096
)

// Budget is the immutable resource envelope for one scan.
type Budget struct {
	// MaxMemoryMB is the process memory ceiling in megabytes;
	// zero means unbounded.
	MaxMemoryMB int64

	// CPUPercent is the advisory CPU throttle; zero means unbounded.
	// Enforcement is cooperative via BlockDelay, not a hard limit.
	CPUPercent int

	// BlockDelay is the cooperative pause applied between blocks.
	BlockDelay time.Duration

	// BufferDepth is the ring-buffer depth (in blocks) for cross-block
	// fragment reconstruction.
	BufferDepth int
}

// NewBudget derives a budget for the profile from measured total and free
// system memory.
func NewBudget(profile Profile) Budget {
	total, free := systemMemoryMB()

	switch profile {
	case ProfilePerformance:
		target := total * 75 / 100
		// Cap against free memory only when the system is critically
		// low; otherwise claiming memory currently used elsewhere is
		// fine.
		if free < total*20/100 {
			target = min64(target, free*90/100)
		}
		target = clamp64(target, 1024, total*80/100)
		return Budget{
			MaxMemoryMB: target,
			BufferDepth: clampInt(int(target/100), 5, 50),
		}

	case ProfileLow:
		target := total * 25 / 100
		if free < total*10/100 {
			target = min64(target, free*70/100)
		}
		target = clamp64(target, 256, total*30/100)
		return Budget{
			MaxMemoryMB: target,
			CPUPercent:  50,
			BlockDelay:  5 * time.Millisecond,
			BufferDepth: clampInt(int(target/200), 2, 15),
		}

	default: // ProfileBalanced
		target := total * 50 / 100
		if free < total*15/100 {
			target = min64(target, free*80/100)
		}
		target = clamp64(target, 512, total*60/100)
		return Budget{
			MaxMemoryMB: target,
			CPUPercent:  80,
			BufferDepth: clampInt(int(target/150), 3, 30),
		}
	}
}

// Unbounded reports whether the budget has no memory ceiling.
func (b Budget) Unbounded() bool { return b.MaxMemoryMB <= 0 }

// systemMemoryMB measures total and available system memory, falling back to
// conservative defaults when measurement fails.
func systemMemoryMB() (total, free int64) {
	vm, err := mem.VirtualMemory()
	if err != nil || vm == nil || vm.Total == 0 {
		return fallbackTotalMB, fallbackFreeMB
	}
	return int64(vm.Total / (1024 * 1024)), int64(vm.Available / (1024 * 1024))
}

// Monitor measures the current process against a budget.
type Monitor struct {
	budget Budget
	proc   *process.Process
}

// NewMonitor creates a monitor for the current process.
func NewMonitor(budget Budget) *Monitor {
	// A process handle failure degrades to fail-open measurement.
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	return &Monitor{budget: budget, proc: proc}
}

// Budget returns the budget the monitor enforces.
func (m *Monitor) Budget() Budget { return m.budget }

// WithinBudget reports whether current process memory is at or under the
// ceiling. Unbounded budgets and measurement failures both report true:
// a transient measurement error must not abort a multi-hour scan.
func (m *Monitor) WithinBudget() bool {
	if m.budget.Unbounded() {
		return true
	}
	usage, ok := m.memoryUsageMB()
	if !ok {
		return true
	}
	return usage <= float64(m.budget.MaxMemoryMB)
}

// MemoryUsageMB returns the current process resident memory in megabytes,
// or zero when it cannot be measured.
func (m *Monitor) MemoryUsageMB() float64 {
	usage, _ := m.memoryUsageMB()
	return usage
}

func (m *Monitor) memoryUsageMB() (float64, bool) {
	if m.proc == nil {
		return 0, false
	}
	info, err := m.proc.MemoryInfo()
	if err != nil || info == nil {
		return 0, false
	}
	return float64(info.RSS) / (1024 * 1024), true
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
