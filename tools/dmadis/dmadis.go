// Package dmadis disassembles DMA-330 instruction programs, e.g. dumped
// from a program buffer while debugging a misbehaving transfer.
package dmadis

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/de1soc/hps/dma"
)

const usageString = `DMA-330 program disassembler.

Usage: %s [flags] <binfile>

Reads from stdin if binfile is "-".

`

var (
	flags = flag.NewFlagSet("dmadis", flag.ExitOnError)

	offset = flags.Int("offset", 0, "start at this byte offset")
	length = flags.Int("n", 0, "disassemble at most this many bytes, 0 for all")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "dmadis")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(1)
	}

	var data []byte
	var err error
	if name := flags.Arg(0); name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		log.Fatalln(err)
	}

	if *offset < 0 || *offset > len(data) {
		log.Fatalln("offset out of range")
	}
	data = data[*offset:]
	if *length > 0 && *length < len(data) {
		data = data[:*length]
	}

	err = dma.Disassemble(os.Stdout, data)
	if err != nil {
		log.Fatalln(err)
	}
}
