package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/betbot/titanbridge/internal/arbiter"
	"github.com/betbot/titanbridge/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	longStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // 绿色
	shortStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // 红色
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

const rowFormat = "%-18s %-8s %-7s %-10s %-12s %-20s %s"

func render(snap arbiter.Snapshot, loaded bool, err error, updated, now time.Time) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("titanbridge 状态面板"))
	b.WriteString("\n\n")

	if err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("获取失败: %v", err)))
		b.WriteString("\n\n")
	}
	if !loaded {
		b.WriteString("正在加载...\n\n按 q 退出")
		return b.String()
	}

	window := time.Duration(snap.FreshnessWindowSeconds * float64(time.Second))
	b.WriteString(dimStyle.Render(fmt.Sprintf("新鲜度窗口 %s · 更新于 %s", window, updated.Format("15:04:05"))))
	b.WriteString("\n\n")

	names := make([]string, 0, len(snap.Instruments))
	for name := range snap.Instruments {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := []string{fmt.Sprintf(rowFormat, "品种", "趋势", "新鲜", "仓位", "挂起", "最近决策", "结果")}
	for _, name := range names {
		rows = append(rows, renderRow(name, snap.Instruments[name], window, snap.GeneratedAt))
	}
	if len(names) == 0 {
		rows = append(rows, dimStyle.Render("暂无品种"))
	}
	b.WriteString(borderStyle.Render(strings.Join(rows, "\n")))
	if len(snap.Counters) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(renderCounters(snap.Counters)))
	}
	b.WriteString("\n\n按 r 刷新，q 退出")
	return b.String()
}

func renderRow(name string, v arbiter.InstrumentView, window time.Duration, at time.Time) string {
	trend, fresh := "-", "-"
	if v.Trend != nil {
		trend = "below"
		if v.Trend.AboveReference {
			trend = "above"
		}
		fresh = "stale"
		if v.Trend.Fresh(at, window) {
			fresh = "fresh"
		}
	}

	position := "flat"
	if v.Position.IsOpen {
		position = string(v.Position.Direction)
	}

	pending := "-"
	if v.Pending != nil {
		pending = "yes"
		if v.Pending.RequestedPrice.IsSome() {
			pending = fmt.Sprintf("@%g", v.Pending.RequestedPrice.Unwrap())
		}
	}

	last, result := "-", ""
	if v.LastDecision != nil {
		last = string(v.LastDecision.Event)
		result = "ok"
		if !v.LastDecision.OK {
			result = "failed"
		}
	}

	row := fmt.Sprintf(rowFormat, name, trend, fresh, position, pending, last, result)
	switch v.Position.Direction {
	case domain.DirectionLong:
		return longStyle.Render(row)
	case domain.DirectionShort:
		return shortStyle.Render(row)
	default:
		return row
	}
}

func renderCounters(counters map[string]int64) string {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counters[k]))
	}
	return strings.Join(parts, "  ")
}
