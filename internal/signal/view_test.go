package signal

import (
	"encoding/json"
	"testing"

	"niftyfib/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordView_Formatting(t *testing.T) {
	rec := Classify(
		market.Bar{Date: day(3), Open: 110, High: 112, Low: 108, Close: 111},
		market.Bar{Date: day(2), Open: 105, High: 120, Low: 100, Close: 118},
	)
	v := rec.View()

	assert.Equal(t, "01/03/2025", v.Date)
	assert.Equal(t, "110.00", v.TodayOpen)
	assert.Equal(t, "100.00", v.YestLow)
	assert.Equal(t, "120.00", v.YestHigh)
	assert.Equal(t, "YES", v.Case1)
	assert.Equal(t, "YES", v.Acceptance)
	assert.Equal(t, "TRIGGER", v.Trigger)
	assert.Equal(t, "106.1800", v.Buy618)
	assert.Equal(t, "105.000", v.Buy50)
	assert.Equal(t, "103.8200", v.Buy382)
	assert.Equal(t, "100.00", v.StopLoss)
	assert.Equal(t, v.StopLoss, v.SL)
	assert.Equal(t, "113.8200", v.Target1)
	assert.Equal(t, "115.0000", v.Target2)
	assert.Equal(t, "120.0000", v.Target3)
}

func TestRecordView_DegenerateRendersZeros(t *testing.T) {
	rec := Classify(
		market.Bar{Date: day(3), Open: 95, High: 99, Low: 90, Close: 96},
		market.Bar{Date: day(2), Open: 105, High: 120, Low: 100, Close: 118},
	)
	v := rec.View()
	assert.Equal(t, "NO TRADE", v.Trigger)
	assert.Equal(t, "NO", v.Case1)
	assert.Equal(t, "NO", v.Acceptance)
	assert.Equal(t, "0.0000", v.Buy618)
	assert.Equal(t, "0.000", v.Buy50)
	assert.Equal(t, "0.0000", v.Target1)
	assert.Equal(t, "100.00", v.StopLoss)
}

func TestView_JSONKeys(t *testing.T) {
	raw, err := json.Marshal(Record{Date: day(3)}.View())
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{
		"date", "today_open", "yest_low", "yest_high", "case1", "acceptance", "trigger",
		"buy_618", "buy_50", "buy_382", "stop_loss", "target1", "target2", "target3", "sl",
	} {
		assert.Contains(t, fields, key)
	}
	assert.Len(t, fields, 15)
	assert.Equal(t, fields["stop_loss"], fields["sl"])
}

func TestGrouped(t *testing.T) {
	assert.Equal(t, "25,850", Grouped(25850))
	assert.Equal(t, "25,850", Grouped(25850.4))
	assert.Equal(t, "1,234,568", Grouped(1234567.5))
	assert.Equal(t, "950", Grouped(950))
	assert.Equal(t, "0", Grouped(0))
	assert.Equal(t, "-1,200", Grouped(-1200))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "25950.1", Clip("25950.1234", 7))
	assert.Equal(t, "113.820", Clip("113.8200", 7))
	assert.Equal(t, "0.0000", Clip("0.0000", 7))
	assert.Equal(t, "abc", Clip("abc", 0))
}
