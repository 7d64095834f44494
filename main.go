package main

import (
	"os"
	"runtime/debug"

	"blockdb/cmd"
	"blockdb/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("BLOCKDB CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
