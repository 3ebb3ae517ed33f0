// mudra composites live camera frames into foreground and background
// cutouts and reports two-hand gestures.
//
// Usage:
//
//	mudra serve --model deeplabv3.onnx --addr localhost:8080
//	mudra templates list
package main

import (
	"os"

	"github.com/ayusman/mudra/cmd/mudra/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
