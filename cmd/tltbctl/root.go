package main

import (
	"github.com/spf13/cobra"
)

var (
	portName string
	baudRate int
)

var rootCmd = &cobra.Command{
	Use:   "tltbctl",
	Short: "Trailer lighting test box bench tool",
	Long: `tltbctl decodes telemetry frames from a test box over its USB serial
port.

Commands:
  monitor   live terminal dashboard
  log       print one line per decoded snapshot
  serve     re-publish snapshots as JSON over WebSocket`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "baud rate")
}
