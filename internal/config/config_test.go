package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "app:\n  name: frostwatcher\n"))
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	if cfg.Scheduler.Interval != 24*time.Hour || cfg.Scheduler.Offset != 21*time.Hour {
		t.Fatalf("调度默认值不正确: interval=%v offset=%v", cfg.Scheduler.Interval, cfg.Scheduler.Offset)
	}
	if !cfg.Scheduler.AlignToBucket {
		t.Fatal("默认应对齐到调度桶")
	}
	if cfg.Weather.Latitude != -12.20892 || cfg.Weather.Longitude != -75.07791 {
		t.Fatalf("默认站点坐标不正确: %v, %v", cfg.Weather.Latitude, cfg.Weather.Longitude)
	}
	if cfg.Weather.LookaheadDays != 2 {
		t.Fatalf("默认预报天数应为 2, 实际 %d", cfg.Weather.LookaheadDays)
	}
	if cfg.Model.ArtifactPath != "models/frost_tree.json" {
		t.Fatalf("默认模型路径不正确: %s", cfg.Model.ArtifactPath)
	}
	if cfg.Window.BandStartHour != 1 || cfg.Window.BandEndHour != 5 {
		t.Fatalf("默认扫描带应为 01-05, 实际 %d-%d", cfg.Window.BandStartHour, cfg.Window.BandEndHour)
	}
	if cfg.Alerting.MinProbability != 0.6 {
		t.Fatalf("默认告警阈值应为 0.6, 实际 %v", cfg.Alerting.MinProbability)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
weather:
  lookahead_days: 3
  location_label: "Test Site"
window:
  band_start_hour: 0
  band_end_hour: 6
scheduler:
  interval: 12h
  offset: 3h
`))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Weather.LookaheadDays != 3 || cfg.Weather.LocationLabel != "Test Site" {
		t.Fatalf("文件覆盖未生效: %+v", cfg.Weather)
	}
	if cfg.Window.BandStartHour != 0 || cfg.Window.BandEndHour != 6 {
		t.Fatalf("扫描带覆盖未生效: %d-%d", cfg.Window.BandStartHour, cfg.Window.BandEndHour)
	}
	if cfg.Scheduler.Interval != 12*time.Hour || cfg.Scheduler.Offset != 3*time.Hour {
		t.Fatalf("调度覆盖未生效: %v/%v", cfg.Scheduler.Interval, cfg.Scheduler.Offset)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"预报天数越界":  "weather:\n  lookahead_days: 20\n",
		"纬度越界":    "weather:\n  latitude: 95\n",
		"扫描带顺序颠倒": "window:\n  band_start_hour: 6\n  band_end_hour: 2\n",
		"扫描带小时越界": "window:\n  band_end_hour: 25\n",
		"偏移超出周期":  "scheduler:\n  interval: 1h\n  offset: 2h\n",
		"告警阈值越界":  "alerting:\n  min_probability: 1.5\n",
		"模型路径为空":  "model:\n  artifact_path: \"\"\n",
		"启用未配置的电报": "alerting:\n  telegram:\n    enabled: true\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfigFile(t, content)); err == nil {
				t.Fatal("非法配置应被拒绝")
			}
		})
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 500}}
	if got := cfg.ResolveMaxPoints(0); got != 500 {
		t.Fatalf("无覆盖时应用配置值, 实际 %d", got)
	}
	if got := cfg.ResolveMaxPoints(50); got != 50 {
		t.Fatalf("CLI 覆盖应优先, 实际 %d", got)
	}
}
