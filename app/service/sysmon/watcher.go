package sysmon

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sam/app/config"

	"github.com/samber/do"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const autoKillThreshold = 90.0

// protected are never auto-terminated.
var protectedProcesses = []string{"system", "idle", "system idle process"}

// Sampler produces one CPU/RAM load sample. Split out so the watcher's
// bookkeeping can be tested without real process data.
type Sampler interface {
	Sample() (cpuPercent, ramPercent float64, err error)
}

type gopsutilSampler struct{}

func (gopsutilSampler) Sample() (float64, float64, error) {
	cpuPercents, err := cpu.Percent(time.Second, false)
	if err != nil || len(cpuPercents) == 0 {
		return 0, 0, err
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}

	return cpuPercents[0], vm.UsedPercent, nil
}

// Watcher keeps rolling CPU/RAM histories and, in auto mode, terminates the
// heaviest process when CPU load stays pathological.
type Watcher struct {
	interval   time.Duration
	maxSamples int
	sampler    Sampler

	mu         sync.Mutex
	cpuHistory []float64
	ramHistory []float64
	autoMode   bool
}

func New(di *do.Injector) (*Watcher, error) {
	return NewWatcher(do.MustInvoke[*config.Config](di)), nil
}

func NewWatcher(cfg *config.Config) *Watcher {
	return &Watcher{
		interval:   time.Duration(cfg.Watcher.IntervalSec) * time.Second,
		maxSamples: cfg.Watcher.MaxSamples,
		sampler:    gopsutilSampler{},
	}
}

func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cpuLoad, ramLoad, err := w.sampler.Sample()
			if err != nil {
				slog.Warn("Load sampling failed", "error", err)
				continue
			}

			w.Record(cpuLoad, ramLoad)

			if w.AutoMode() && cpuLoad > autoKillThreshold {
				w.autoIntervene()
			}
		}
	}
}

// Record appends a sample, dropping the oldest once the window is full.
func (w *Watcher) Record(cpuLoad, ramLoad float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cpuHistory = append(w.cpuHistory, cpuLoad)
	w.ramHistory = append(w.ramHistory, ramLoad)

	if len(w.cpuHistory) > w.maxSamples {
		w.cpuHistory = w.cpuHistory[1:]
	}
	if len(w.ramHistory) > w.maxSamples {
		w.ramHistory = w.ramHistory[1:]
	}
}

// AverageLoad returns mean CPU and RAM over the window, (0, 0) before any
// sample lands.
func (w *Watcher) AverageLoad() (float64, float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.cpuHistory) == 0 {
		return 0, 0
	}

	return mean(w.cpuHistory), mean(w.ramHistory)
}

func (w *Watcher) EnableAutoMode() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.autoMode = true
}

func (w *Watcher) DisableAutoMode() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.autoMode = false
}

func (w *Watcher) AutoMode() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.autoMode
}

func (w *Watcher) autoIntervene() {
	heavy, err := HeavyProcesses(1)
	if err != nil || len(heavy) == 0 {
		return
	}

	name := heavy[0].Name
	for _, p := range protectedProcesses {
		if strings.EqualFold(name, p) {
			return
		}
	}

	if _, err = KillProcessByName(name); err != nil {
		slog.Warn("Auto intervention failed", "process", name, "error", err)
		return
	}

	slog.Info("Auto mode terminated process", "process", name, "telegram", true)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
