package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/de1soc/hps/tools/dmadis"
	"github.com/de1soc/hps/tools/run"
	"github.com/de1soc/hps/tools/sdimage"
)

const usageString = `de1go is a tool for development on the Leeds SoC Computer boards.

Usage:

	%s <command> [arguments]

The commands are:

	run      run a binary under a pty and scan for test results
	sdimage  build bootable SD card images
	dmadis   disassemble DMA-330 programs
`

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), usageString, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	log.Default().SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "run":
		run.Main(flag.Args())
	case "sdimage":
		sdimage.Main(flag.Args())
	case "dmadis":
		dmadis.Main(flag.Args())
	default:
		fmt.Fprintf(flag.CommandLine.Output(), "unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}
