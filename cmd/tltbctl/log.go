package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tltb-go/types"
)

var logShowErrors bool

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print one line per decoded telemetry snapshot",
	RunE:  runLog,
}

func init() {
	logCmd.Flags().BoolVar(&logShowErrors, "errors", false, "also print dropped frames")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	port, err := openPort()
	if err != nil {
		return err
	}
	defer port.Close()

	fmt.Printf("tltbctl log, %s @ %d\n", portName, baudRate)
	return readFrames(port,
		func(s types.Snapshot) {
			fmt.Printf("%s %s\n", time.Now().Format("15:04:05.000"), describeSnapshot(s))
		},
		func(err error) {
			if logShowErrors {
				fmt.Printf("%s dropped frame: %v\n", time.Now().Format("15:04:05.000"), err)
			}
		})
}
