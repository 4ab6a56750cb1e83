// Package run executes a target command, typically an emulator or a serial
// console attached to the board, under a pseudo terminal and scans its
// output for test results. If a result is found the command is shut down
// after a short delay and run exits 0 for PASS, 1 for FAIL or a runtime
// panic.
package run

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aymanbagabas/go-pty"
	"github.com/buildkite/shellwords"
)

const usageString = `Run a command under a pty and scan for test results.

Usage: %s [flags] <command line>

The command line is split with shell quoting rules, so a single quoted
argument works as well as separate ones.

`

var (
	flags = flag.NewFlagSet("run", flag.ExitOnError)

	timeout = flags.Duration("timeout", 5*time.Minute, "give up and fail after this long")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "run")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() < 1 {
		flags.Usage()
		os.Exit(1)
	}
	argv, err := shellwords.Split(strings.Join(flags.Args(), " "))
	if err != nil {
		log.Fatalln("split command:", err)
	}

	ptmx, err := pty.New()
	if err != nil {
		log.Fatalln("open pty:", err)
	}
	defer ptmx.Close()

	cmd := ptmx.Command(argv[0], argv[1:]...)
	err = cmd.Start()
	if err != nil {
		log.Fatalln("start command:", err)
	}

	code := 1
	ok := make(chan int, 1)
	go func() {
		select {
		case code = <-ok:
		case <-time.After(*timeout):
			log.Println("timeout")
		}
		// give panic() time to print the stacktrace
		time.Sleep(500 * time.Millisecond)
		ptmx.Close()
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	scanner := bufio.NewScanner(ptmx)
	exiting := false
	for scanner.Scan() {
		log.Println(scanner.Text())
		if exiting {
			continue
		}
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "fatal error:"), strings.HasPrefix(line, "panic:"):
			fallthrough
		case line == "FAIL":
			exiting = true
			ok <- 1
		case line == "PASS":
			exiting = true
			ok <- 0
		}
	}
	cmd.Wait()
	os.Exit(code)
}
