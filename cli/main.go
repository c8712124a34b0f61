// Package main provides kangtani-cli, a terminal client for the gateway.
//
// Usage:
//
//	kangtani-cli [-addr http://localhost:8000] chat
//	kangtani-cli [-addr http://localhost:8000] check
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

func main() {
	addr := flag.String("addr", "http://localhost:8000", "gateway base URL")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-request timeout for check")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [chat|check]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetFlags(log.Ltime)
	base := strings.TrimSuffix(*addr, "/")

	cmd := "chat"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	switch cmd {
	case "check":
		results := RunChecks(base, *timeout)
		if !PrintReport(os.Stdout, results) {
			os.Exit(1)
		}
	case "chat":
		if err := runChat(base); err != nil {
			log.Fatalf("chat: %v", err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}
