package sysmon

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/distatus/battery"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const gigabyte = 1024 * 1024 * 1024

type UsageGB struct {
	Percent float64
	UsedGB  float64
	TotalGB float64
}

type BatteryStatus struct {
	Percent float64
	Plugged bool
}

type Report struct {
	CPU          float64
	RAM          UsageGB
	Disk         UsageGB
	Battery      *BatteryStatus
	Online       bool
	TopProcesses []ProcessInfo
}

// GetReport samples the machine once. Battery is nil on hosts without one.
func GetReport() (*Report, error) {
	cpuPercents, err := cpu.Percent(time.Second, false)
	if err != nil || len(cpuPercents) == 0 {
		return nil, fmt.Errorf("failed to sample cpu: %w", err)
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory: %w", err)
	}

	du, err := disk.Usage("/")
	if err != nil {
		return nil, fmt.Errorf("failed to read disk: %w", err)
	}

	report := &Report{
		CPU: round1(cpuPercents[0]),
		RAM: UsageGB{
			Percent: round1(vm.UsedPercent),
			UsedGB:  round2(float64(vm.Used) / gigabyte),
			TotalGB: round2(float64(vm.Total) / gigabyte),
		},
		Disk: UsageGB{
			Percent: round1(du.UsedPercent),
			UsedGB:  round2(float64(du.Used) / gigabyte),
			TotalGB: round2(float64(du.Total) / gigabyte),
		},
		Online: isOnline(),
	}

	if batteries, err := battery.GetAll(); err == nil && len(batteries) > 0 {
		b := batteries[0]
		if b.Full > 0 {
			report.Battery = &BatteryStatus{
				Percent: round1(b.Current / b.Full * 100),
				Plugged: b.State.Raw != battery.Discharging,
			}
		}
	}

	if top, err := HeavyProcesses(3); err == nil {
		report.TopProcesses = top
	}

	return report, nil
}

// Describe renders the report the way it is spoken to the user.
func (r *Report) Describe() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Sir,\n\n")
	fmt.Fprintf(&b, "CPU usage is %.0f percent.\n", r.CPU)
	fmt.Fprintf(&b, "RAM usage is %.0f percent. %.2f gigabytes of %.2f gigabytes.\n",
		r.RAM.Percent, r.RAM.UsedGB, r.RAM.TotalGB)
	fmt.Fprintf(&b, "Disk usage is %.0f percent. %.2f gigabytes of %.2f gigabytes.\n",
		r.Disk.Percent, r.Disk.UsedGB, r.Disk.TotalGB)

	if r.Battery != nil {
		fmt.Fprintf(&b, "\nBattery is at %.0f percent.", r.Battery.Percent)
		if r.Battery.Plugged {
			b.WriteString(" Plugged in.")
		} else {
			b.WriteString(" Running on battery.")
		}
		b.WriteString("\n")
	}

	if r.Online {
		b.WriteString("\nInternet connection is active.")
	} else {
		b.WriteString("\nInternet appears to be offline.")
	}

	var top []ProcessInfo
	for _, p := range r.TopProcesses {
		if p.CPUPercent > 0 && p.Name != "" {
			top = append(top, p)
		}
	}
	if len(top) > 0 {
		b.WriteString("\n\nTop processes:")
		for _, p := range top {
			fmt.Fprintf(&b, "\n%s at %.1f percent.", p.Name, p.CPUPercent)
		}
	}

	return b.String()
}

func isOnline() bool {
	conn, err := net.DialTimeout("tcp", "8.8.8.8:53", 2*time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()

	return true
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
