// Package system collects host health rows for the overview card.
package system

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Level color-codes a stat row for the dashboard.
type Level string

const (
	LevelOK   Level = "green"
	LevelWarn Level = "yellow"
	LevelCrit Level = "red"
)

// Stat is one host metric row. Value is pre-rendered; a probe failure shows
// as an em-dash row instead of hiding the metric.
type Stat struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Percent float64 `json:"percent,omitempty"`
	Level   Level   `json:"level"`
}

const (
	warnPercent = 80
	critPercent = 90
)

// Collect probes disk, memory, load, and uptime. Each probe fails
// independently; the slice always has all four rows.
func Collect() []Stat {
	return []Stat{
		diskStat(),
		memStat(),
		loadStat(),
		uptimeStat(),
	}
}

func diskStat() Stat {
	u, err := disk.Usage("/")
	if err != nil {
		return failed("disk")
	}
	return Stat{
		Name:    "disk",
		Value:   fmt.Sprintf("%.1f / %.1f GB (%.0f%%)", gb(u.Used), gb(u.Total), u.UsedPercent),
		Percent: u.UsedPercent,
		Level:   levelFor(u.UsedPercent),
	}
}

func memStat() Stat {
	v, err := mem.VirtualMemory()
	if err != nil {
		return failed("memory")
	}
	return Stat{
		Name:    "memory",
		Value:   fmt.Sprintf("%.1f / %.1f GB (%.0f%%)", gb(v.Used), gb(v.Total), v.UsedPercent),
		Percent: v.UsedPercent,
		Level:   levelFor(v.UsedPercent),
	}
}

func loadStat() Stat {
	avg, err := load.Avg()
	if err != nil {
		return failed("load")
	}
	// Normalize 1-minute load against core count for the color level.
	percent := avg.Load1 / float64(runtime.NumCPU()) * 100
	return Stat{
		Name:    "load",
		Value:   fmt.Sprintf("%.2f %.2f %.2f", avg.Load1, avg.Load5, avg.Load15),
		Percent: percent,
		Level:   levelFor(percent),
	}
}

func uptimeStat() Stat {
	secs, err := host.Uptime()
	if err != nil {
		return failed("uptime")
	}
	d := time.Duration(secs) * time.Second
	return Stat{
		Name:  "uptime",
		Value: formatUptime(d),
		Level: LevelOK,
	}
}

func failed(name string) Stat {
	return Stat{Name: name, Value: "—", Level: LevelWarn}
}

func levelFor(percent float64) Level {
	switch {
	case percent < warnPercent:
		return LevelOK
	case percent < critPercent:
		return LevelWarn
	default:
		return LevelCrit
	}
}

func gb(b uint64) float64 {
	return float64(b) / (1 << 30)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
