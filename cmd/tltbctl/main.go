// tltbctl is the bench companion for the test box firmware: it decodes
// the CBOR telemetry stream from the USB serial port and presents it as
// a live dashboard, a line log, or a WebSocket feed.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
