package signal

import (
	"time"
)

// Trigger 是单日分类结果。
type Trigger int

const (
	NoTrade Trigger = iota
	TriggerFired
)

func (t Trigger) String() string {
	if t == TriggerFired {
		return "TRIGGER"
	}
	return "NO TRADE"
}

// RetracementLevels 是由 (今日, 昨日) 推导出的三档回撤买点。
type RetracementLevels struct {
	L618 float64
	L50  float64
	L382 float64
}

// Record 是一个交易日的分类结果，产出后不再修改。
type Record struct {
	Date       time.Time
	TodayOpen  float64
	YestLow    float64
	YestHigh   float64
	Case1      bool
	Acceptance bool
	Trigger    Trigger
	Buy618     float64
	Buy50      float64
	Buy382     float64
	StopLoss   float64
	Target1    float64
	Target2    float64
	Target3    float64
}

// IsTrigger 当且仅当 case1 与 acceptance 同时成立。
func (r Record) IsTrigger() bool {
	return r.Trigger == TriggerFired
}

// Degenerate 报告今日开盘未高于昨日低点、没有回撤结构的记录。
func (r Record) Degenerate() bool {
	return !r.Case1
}

func (r Record) Levels() RetracementLevels {
	return RetracementLevels{L618: r.Buy618, L50: r.Buy50, L382: r.Buy382}
}
