package app

import (
	"context"
	"errors"
	"time"

	"frost-risk-alerts/internal/alerting"
	"frost-risk-alerts/internal/risk"
)

// SimulateAlert 使用给定的分类结果模拟一次告警流程，用于验证通道配置。
func (a *App) SimulateAlert(ctx context.Context, class int, probability, temperature float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}
	if probability < 0 || probability > 1 {
		return errors.New("--probability 必须位于 [0, 1]")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	// Simulated target hour: 03:00 of the next calendar day, the middle of
	// the default scan band.
	tomorrow := time.Now().AddDate(0, 0, 1)
	target := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 3, 0, 0, 0, time.Local)

	descriptor := risk.Bucket(class, probability, temperature, target)

	note := alerting.Notification{
		TargetTime:       descriptor.TargetTime,
		Location:         a.Config.Weather.LocationLabel,
		Outcome:          descriptor.Outcome,
		Intensity:        descriptor.Intensity,
		DurationHours:    descriptor.DurationHours,
		FrostProbability: descriptor.FrostProbability,
		ForecastTemp:     descriptor.Temperature,
		Channels:         a.Config.Alerting.Channels,
		AdditionalMsg:    "(simulated)",
	}
	return notifier.Notify(ctx, note)
}
