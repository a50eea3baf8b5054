package notifier

import (
	"fmt"
	"strings"
	"time"

	"niftyfib/internal/backtest"
	"niftyfib/internal/signal"
)

// target1Width 是报告里 T1 的截取宽度，例如 "25950.1234" -> "25950.1"。
const target1Width = 7

func (d *Dispatcher) liveAlertBody(rec signal.Record, now time.Time) string {
	msg := StructuredMessage{
		Title:     d.symbol + " LIVE TRADING ALERT",
		Timestamp: now,
		Sections: []MessageSection{{
			Lines: []string{
				"Date: " + rec.View().Date,
				"Buy 50%: ₹" + signal.Grouped(rec.Buy50),
				"SL: ₹" + signal.Grouped(rec.StopLoss),
				"T1: ₹" + signal.Grouped(rec.Target1),
			},
		}},
		Footer: d.dashboardLine("DASHBOARD"),
	}
	return msg.RenderText()
}

func (d *Dispatcher) reportBody(sum backtest.Summary, now time.Time) string {
	overview := MessageSection{
		Lines: []string{
			fmt.Sprintf("Period: %s → %s", sum.From, sum.To),
			fmt.Sprintf("Triggers: %d / %d days", sum.Triggers, sum.TotalDays),
			fmt.Sprintf("Hit Rate: %.1f%%", sum.HitRate),
		},
	}
	recent := MessageSection{Title: fmt.Sprintf("TOP %d TRIGGERS:", backtest.RecentTriggerCount)}
	for _, v := range sum.RecentViews {
		recent.Lines = append(recent.Lines,
			"🔔 "+v.Date,
			"   Buy 50%: ₹"+v.Buy50,
			"   SL: ₹"+v.StopLoss,
			"   T1: ₹"+signal.Clip(v.Target1, target1Width),
		)
	}
	if len(sum.RecentViews) == 0 {
		recent.Lines = append(recent.Lines, "(none)")
	}
	msg := StructuredMessage{
		Title:     d.symbol + " FIBONACCI BACKTEST REPORT",
		Timestamp: now,
		Sections:  []MessageSection{overview, recent},
		Footer:    d.dashboardLine("LIVE DASHBOARD"),
	}
	return msg.RenderText()
}

func (d *Dispatcher) dashboardLine(label string) string {
	if strings.TrimSpace(d.dashboardURL) == "" {
		return ""
	}
	return label + ": " + d.dashboardURL
}

func (d *Dispatcher) subject(kind string) string {
	prefix := strings.TrimSpace(d.subjectPrefix)
	if prefix == "" {
		return kind
	}
	return prefix + ": " + kind
}
