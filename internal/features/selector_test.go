package features

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"frost-risk-alerts/internal/weather"
)

func testSelector() *Selector {
	return NewSelector(DefaultSelectorOptions(), DefaultSoilMoisturePolicy(), zerolog.Nop())
}

// referenceNow 固定在目标日前一天的晚上。
var selectorNow = time.Date(2024, 6, 13, 21, 0, 0, 0, time.UTC)

func completeObs(ts time.Time) weather.Observation {
	return weather.Observation{
		Timestamp:        ts,
		Temperature:      floatPtr(-1.0),
		RelativeHumidity: floatPtr(80),
		SurfacePressure:  floatPtr(68900),
		Precipitation:    2.0,
		SoilMoisture:     floatPtr(0.21),
	}
}

func TestSelectEarliestCompleteHourWins(t *testing.T) {
	h2 := completeObs(time.Date(2024, 6, 14, 2, 0, 0, 0, time.UTC))
	h4 := completeObs(time.Date(2024, 6, 14, 4, 0, 0, 0, time.UTC))

	candidate, err := testSelector().Select([]weather.Observation{h2, h4}, selectorNow)
	if err != nil {
		t.Fatalf("应选出候选小时: %v", err)
	}
	if !candidate.Timestamp.Equal(h2.Timestamp) {
		t.Fatalf("应选择最早的完整小时 02:00, 实际 %v", candidate.Timestamp)
	}
}

func TestSelectSkipsIncompleteHour(t *testing.T) {
	h2 := completeObs(time.Date(2024, 6, 14, 2, 0, 0, 0, time.UTC))
	h2.Temperature = nil
	h4 := completeObs(time.Date(2024, 6, 14, 4, 0, 0, 0, time.UTC))

	candidate, err := testSelector().Select([]weather.Observation{h2, h4}, selectorNow)
	if err != nil {
		t.Fatalf("应跳过缺温度的小时并选后一个: %v", err)
	}
	if !candidate.Timestamp.Equal(h4.Timestamp) {
		t.Fatalf("期望 04:00, 实际 %v", candidate.Timestamp)
	}
}

func TestSelectHeuristicFillsSoilMoisture(t *testing.T) {
	h3 := completeObs(time.Date(2024, 6, 14, 3, 0, 0, 0, time.UTC))
	h3.SoilMoisture = nil // rh=80, precip=2 → 0.252

	candidate, err := testSelector().Select([]weather.Observation{h3}, selectorNow)
	if err != nil {
		t.Fatalf("启发式补全后应为完整向量: %v", err)
	}
	if candidate.Vector.SoilMoisture != 0.252 {
		t.Fatalf("期望启发式估计 0.252, 实际 %v", candidate.Vector.SoilMoisture)
	}
	if candidate.Raw.SoilMoisture != nil {
		t.Fatal("原始观测不应被回填")
	}
}

func TestSelectMeasuredSoilMoisturePreferred(t *testing.T) {
	h3 := completeObs(time.Date(2024, 6, 14, 3, 0, 0, 0, time.UTC))

	candidate, err := testSelector().Select([]weather.Observation{h3}, selectorNow)
	if err != nil {
		t.Fatalf("应选出候选小时: %v", err)
	}
	if candidate.Vector.SoilMoisture != 0.21 {
		t.Fatalf("实测值优先于启发式: 期望 0.21, 实际 %v", candidate.Vector.SoilMoisture)
	}
}

func TestSelectBandBoundsInclusive(t *testing.T) {
	h1 := completeObs(time.Date(2024, 6, 14, 1, 0, 0, 0, time.UTC))
	h5 := completeObs(time.Date(2024, 6, 14, 5, 0, 0, 0, time.UTC))
	h6 := completeObs(time.Date(2024, 6, 14, 6, 0, 0, 0, time.UTC))

	if candidate, err := testSelector().Select([]weather.Observation{h1}, selectorNow); err != nil || !candidate.Timestamp.Equal(h1.Timestamp) {
		t.Fatalf("01:00 应在扫描带内: %v", err)
	}
	if candidate, err := testSelector().Select([]weather.Observation{h5}, selectorNow); err != nil || !candidate.Timestamp.Equal(h5.Timestamp) {
		t.Fatalf("05:00 应在扫描带内: %v", err)
	}
	if _, err := testSelector().Select([]weather.Observation{h6}, selectorNow); !errors.Is(err, ErrWindowNotFound) {
		t.Fatalf("06:00 在扫描带外, 期望 ErrWindowNotFound, 实际 %v", err)
	}
}

func TestSelectRejectsSameDayHours(t *testing.T) {
	// 当天凌晨的小时不属于次日扫描带。
	today := completeObs(time.Date(2024, 6, 13, 3, 0, 0, 0, time.UTC))

	if _, err := testSelector().Select([]weather.Observation{today}, selectorNow); !errors.Is(err, ErrWindowNotFound) {
		t.Fatalf("期望 ErrWindowNotFound, 实际 %v", err)
	}
}

func TestSelectBandEmpty(t *testing.T) {
	if _, err := testSelector().Select(nil, selectorNow); !errors.Is(err, ErrWindowNotFound) {
		t.Fatal("空序列应返回 ErrWindowNotFound")
	}
}

func TestSelectAllHoursIncomplete(t *testing.T) {
	var observations []weather.Observation
	for hour := 1; hour <= 5; hour++ {
		obs := completeObs(time.Date(2024, 6, 14, hour, 0, 0, 0, time.UTC))
		obs.RelativeHumidity = nil // 同时破坏分类器特征与启发式输入
		obs.SoilMoisture = nil
		observations = append(observations, obs)
	}

	if _, err := testSelector().Select(observations, selectorNow); !errors.Is(err, ErrWindowNotFound) {
		t.Fatal("全部小时不完整时应返回 ErrWindowNotFound")
	}
}

func TestSelectConvertsReferenceNowIntoSeriesZone(t *testing.T) {
	lima := time.FixedZone("America/Lima", -5*3600)
	h3 := completeObs(time.Date(2024, 6, 14, 3, 0, 0, 0, lima))

	// 参考时刻用 UTC 表达, 2024-06-14T02:00Z == 2024-06-13T21:00 利马时间。
	now := time.Date(2024, 6, 14, 2, 0, 0, 0, time.UTC)

	candidate, err := testSelector().Select([]weather.Observation{h3}, now)
	if err != nil {
		t.Fatalf("跨时区比较应成立: %v", err)
	}
	if !candidate.Timestamp.Equal(h3.Timestamp) {
		t.Fatalf("期望利马时间 03:00, 实际 %v", candidate.Timestamp)
	}
}

func TestVectorOrderStable(t *testing.T) {
	want := []string{"temperature", "relative_humidity", "surface_pressure", "soil_moisture"}
	got := Order()
	if len(got) != len(want) {
		t.Fatalf("特征数量应为 %d, 实际 %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("特征顺序第 %d 位应为 %s, 实际 %s", i, want[i], got[i])
		}
	}

	v := Vector{Temperature: -1.5, RelativeHumidity: 80, SurfacePressure: 68900, SoilMoisture: 0.21}
	values := v.Values()
	if values[0] != -1.5 || values[1] != 80 || values[2] != 68900 || values[3] != 0.21 {
		t.Fatalf("Values 顺序与 Order 不一致: %v", values)
	}
}
