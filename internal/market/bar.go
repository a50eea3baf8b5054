package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateLayout 是对外展示日线日期的格式（与看板一致：月/日/年）。
const DateLayout = "01/02/2006"

// ErrMalformedBar 标记价格字段缺失或 OHLC 关系不成立的日线。
var ErrMalformedBar = errors.New("malformed bar")

// Bar 是一根已校验的日线。Date 为交易所当地日历日，以 UTC 零点保存。
type Bar struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// RawBar 保留上游的可空字段，便于区分 "null" 与 0。
type RawBar struct {
	Time  time.Time
	Open  *float64
	High  *float64
	Low   *float64
	Close *float64
}

// MalformedBarError 描述被跳过的一根日线。
type MalformedBarError struct {
	Date   time.Time
	Reason string
}

func (e *MalformedBarError) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrMalformedBar, e.Date.Format("2006-01-02"), e.Reason)
}

func (e *MalformedBarError) Unwrap() error { return ErrMalformedBar }

func malformed(date time.Time, format string, args ...any) error {
	return &MalformedBarError{Date: date, Reason: fmt.Sprintf(format, args...)}
}

// Validate 要求 high >= max(open, close) >= min(open, close) >= low >= 0，
// 且全部为有限数。不做修补，直接拒绝。
func (b Bar) Validate() error {
	fields := [...]struct {
		name string
		v    float64
	}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return malformed(b.Date, "%s is not finite", f.name)
		}
		if f.v < 0 {
			return malformed(b.Date, "%s=%.4f is negative", f.name, f.v)
		}
	}
	top := math.Max(b.Open, b.Close)
	bottom := math.Min(b.Open, b.Close)
	if b.High < top {
		return malformed(b.Date, "high=%.4f below body top=%.4f", b.High, top)
	}
	if bottom < b.Low {
		return malformed(b.Date, "low=%.4f above body bottom=%.4f", b.Low, bottom)
	}
	return nil
}

// DateString 按看板格式输出日期。
func (b Bar) DateString() string {
	return b.Date.Format(DateLayout)
}

// Resolve 把可空行转换为 Bar；缺字段或 OHLC 不一致时返回 *MalformedBarError。
func (r RawBar) Resolve(loc *time.Location) (Bar, error) {
	date := DateKey(r.Time, loc)
	var missing []string
	pick := func(name string, p *float64) float64 {
		if p == nil {
			missing = append(missing, name)
			return 0
		}
		return *p
	}
	bar := Bar{
		Date:  date,
		Open:  pick("open", r.Open),
		High:  pick("high", r.High),
		Low:   pick("low", r.Low),
		Close: pick("close", r.Close),
	}
	if len(missing) > 0 {
		return Bar{}, malformed(date, "null fields %v", missing)
	}
	if err := bar.Validate(); err != nil {
		return Bar{}, err
	}
	return bar, nil
}

// DateKey 把任意时区的时间戳归一到 loc 下的日历日，并以该日的 UTC 零点表示。
func DateKey(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
