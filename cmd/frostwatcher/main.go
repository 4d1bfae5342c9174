package main

import (
	"frost-risk-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
