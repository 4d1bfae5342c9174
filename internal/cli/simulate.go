package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateClass       int
	simulateProbability float64
	simulateTemperature float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次分类结果并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateClass != 0 && simulateClass != 1 {
			return errors.New("--class 必须为 0 或 1")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateClass, simulateProbability, simulateTemperature)
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simulateClass, "class", 1, "模拟的预测类别 (0=无霜冻, 1=霜冻)")
	simulateCmd.Flags().Float64Var(&simulateProbability, "probability", 0.85, "模拟的霜冻概率 [0,1]")
	simulateCmd.Flags().Float64Var(&simulateTemperature, "temperature", -3, "模拟的预报气温 (°C)")
}
