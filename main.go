package main

import (
	"os"
)

func main() {
	cfg := parseArgs(os.Args[1:])

	switch cfg.mode {
	case listMode:
		listMain(cfg)
	case propsMode:
		propsMain(cfg)
	case versionMode:
		versionMain()
	case runMode:
		runMain(cfg)
	}
}
