package sysmon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

type ProcessInfo struct {
	PID        int32
	Name       string
	CPUPercent float64
}

// HeavyProcesses returns the top CPU consumers, heaviest first.
func HeavyProcesses(limit int) ([]ProcessInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	result := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}

		cpuPercent, err := p.CPUPercent()
		if err != nil {
			continue
		}

		result = append(result, ProcessInfo{
			PID:        p.Pid,
			Name:       name,
			CPUPercent: round1(cpuPercent),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CPUPercent > result[j].CPUPercent
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// KillProcessByName terminates every process whose name contains name
// (case-insensitive) and returns the names actually killed.
func KillProcessByName(name string) ([]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var killed []string
	for _, p := range procs {
		procName, err := p.Name()
		if err != nil {
			continue
		}

		if !strings.Contains(strings.ToLower(procName), strings.ToLower(name)) {
			continue
		}

		if err = p.Kill(); err != nil {
			continue
		}

		killed = append(killed, procName)
	}

	return killed, nil
}
