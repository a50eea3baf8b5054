package signal

import (
	"strings"

	"niftyfib/internal/market"
)

// View 是 Record 的展示形态：数值为定点小数字符串，布尔为 YES/NO。
// 下游看板原样显示这些字符串，字段名保持稳定。
type View struct {
	Date       string `json:"date"`
	TodayOpen  string `json:"today_open"`
	YestLow    string `json:"yest_low"`
	YestHigh   string `json:"yest_high"`
	Case1      string `json:"case1"`
	Acceptance string `json:"acceptance"`
	Trigger    string `json:"trigger"`
	Buy618     string `json:"buy_618"`
	Buy50      string `json:"buy_50"`
	Buy382     string `json:"buy_382"`
	StopLoss   string `json:"stop_loss"`
	Target1    string `json:"target1"`
	Target2    string `json:"target2"`
	Target3    string `json:"target3"`

	// SL 与 StopLoss 相同，旧看板按 "sl" 读取。
	SL string `json:"sl"`
}

func (r Record) View() View {
	return View{
		Date:       r.Date.Format(market.DateLayout),
		TodayOpen:  Fixed(r.TodayOpen, 2),
		YestLow:    Fixed(r.YestLow, 2),
		YestHigh:   Fixed(r.YestHigh, 2),
		Case1:      yesNo(r.Case1),
		Acceptance: yesNo(r.Acceptance),
		Trigger:    r.Trigger.String(),
		Buy618:     Fixed(r.Buy618, 4),
		Buy50:      Fixed(r.Buy50, 3),
		Buy382:     Fixed(r.Buy382, 4),
		StopLoss:   Fixed(r.StopLoss, 2),
		Target1:    Fixed(r.Target1, 4),
		Target2:    Fixed(r.Target2, 4),
		Target3:    Fixed(r.Target3, 4),
		SL:         Fixed(r.StopLoss, 2),
	}
}

// Views 保持输入顺序。
func Views(records []Record) []View {
	out := make([]View, 0, len(records))
	for _, r := range records {
		out = append(out, r.View())
	}
	return out
}

// Fixed 以 places 位小数输出（四舍五入，非科学计数法）。
func Fixed(v float64, places int32) string {
	return decFromFloat(v).StringFixed(places)
}

// Grouped 以整数并加千分位输出，例如 25850.4 -> "25,850"。
func Grouped(v float64) string {
	s := decFromFloat(v).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Clip 截取前 n 个字符，用于邮件里目标价的紧凑写法。
func Clip(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}

