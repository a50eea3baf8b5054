package signal

import (
	"math"

	"niftyfib/internal/market"

	"github.com/shopspring/decimal"
)

var (
	fib618 = decimal.RequireFromString("0.618")
	fib50  = decimal.RequireFromString("0.5")
	fib382 = decimal.RequireFromString("0.382")
	fib100 = decimal.NewFromInt(1)
)

// Classify 由今日开盘与昨日高低点计算回撤买点、目标与止损，并给出是否触发。
// 纯函数；运算使用十进制以避免 0.1 类浮点误差进入展示层。
func Classify(today, yesterday market.Bar) Record {
	open := decFromFloat(today.Open)
	low := decFromFloat(yesterday.Low)
	high := decFromFloat(yesterday.High)

	rec := Record{
		Date:      today.Date,
		TodayOpen: today.Open,
		YestLow:   yesterday.Low,
		YestHigh:  yesterday.High,
		StopLoss:  yesterday.Low,
		Trigger:   NoTrade,
	}

	rangeSize := open.Sub(low)
	if !rangeSize.IsPositive() {
		return rec
	}

	buy618 := low.Add(fib618.Mul(rangeSize))
	buy50 := low.Add(fib50.Mul(rangeSize))
	buy382 := low.Add(fib382.Mul(rangeSize))

	rec.Case1 = open.GreaterThan(low)
	rec.Acceptance = within(buy50, low, high) && within(buy618, low, high)
	if rec.Case1 && rec.Acceptance {
		rec.Trigger = TriggerFired
	}

	rec.Buy618 = decToFloat(buy618)
	rec.Buy50 = decToFloat(buy50)
	rec.Buy382 = decToFloat(buy382)
	rec.Target1 = decToFloat(open.Add(fib382.Mul(rangeSize)))
	rec.Target2 = decToFloat(open.Add(fib50.Mul(rangeSize)))
	rec.Target3 = decToFloat(open.Add(fib100.Mul(rangeSize)))
	return rec
}

// ClassifySeries 对升序日线做 (bars[i], bars[i-1]) 配对，从最新一天向前，
// 返回的记录按最新在前排列。少于两根时返回 nil。
func ClassifySeries(bars []market.Bar) []Record {
	if len(bars) < 2 {
		return nil
	}
	out := make([]Record, 0, len(bars)-1)
	for i := len(bars) - 1; i >= 1; i-- {
		out = append(out, Classify(bars[i], bars[i-1]))
	}
	return out
}

func within(v, lo, hi decimal.Decimal) bool {
	return v.GreaterThanOrEqual(lo) && v.LessThanOrEqual(hi)
}

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}
