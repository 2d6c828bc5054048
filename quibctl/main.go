package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"github.com/quibium/quib/quib"
)

const QuibCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger
var clog quib.LogFunction

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
	clog = quib.LogFn(quib.LogLevelInfo, "quibctl")
}

func main() {
	usage := `Quib override record control.

Inspect, validate and merge override record files written by
quib.Graph.WriteOverrides.

Usage:
    quibctl list-overrides <file> [--verbose]
    quibctl validate <file> [--verbose]
    quibctl merge-overrides <a> <b> --out=<out> [--verbose]

Options:
    -h --help    Show this screen.
    --version    Show version.
    --out=<out>  Merged output file.
    --verbose    Print diagnostic output.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], QuibCtlVersion)
	if err != nil {
		panic(err)
	}

	if verbose, _ := opts.Bool("--verbose"); verbose {
		quib.GlobalLogLevel = quib.LogLevelDebug
	}

	if listOverrides_, _ := opts.Bool("list-overrides"); listOverrides_ {
		listOverrides(opts)
	} else if validate_, _ := opts.Bool("validate"); validate_ {
		validate(opts)
	} else if mergeOverrides_, _ := opts.Bool("merge-overrides"); mergeOverrides_ {
		mergeOverrides(opts)
	}
}

func readRecords(path string) []*quib.OverrideRecordExport {
	encoded, err := os.ReadFile(path)
	if err != nil {
		Err.Fatalf("%s: %s", path, err)
	}
	exports, err := quib.ParseOverrideRecords(encoded)
	if err != nil {
		Err.Fatalf("%s: %s", path, err)
	}
	clog("read %d records from %s", len(exports), path)
	return exports
}

func listOverrides(opts docopt.Opts) {
	path, _ := opts.String("<file>")
	exports := readRecords(path)

	// align columns only on a terminal
	pretty := term.IsTerminal(int(syscall.Stdout))
	for _, export := range exports {
		region := "whole"
		if !export.Whole {
			parts := []string{}
			for _, s := range export.Spans {
				if s[1] == s[0]+1 {
					parts = append(parts, fmt.Sprintf("%d", s[0]))
				} else {
					parts = append(parts, fmt.Sprintf("%d:%d", s[0], s[1]))
				}
			}
			region = strings.Join(parts, ",")
		}
		if pretty {
			Out.Printf("%-32s %-16s %s", export.Quib, region, string(export.Value))
		} else {
			Out.Printf("%s\t%s\t%s", export.Quib, region, string(export.Value))
		}
	}
	Out.Printf("%d records", len(exports))
}

func validate(opts docopt.Opts) {
	path, _ := opts.String("<file>")
	exports := readRecords(path)
	for i, export := range exports {
		if export.Quib == "" {
			Err.Fatalf("record %d: missing quib name", i)
		}
		if !export.Whole && len(export.Spans) == 0 {
			Err.Fatalf("record %d (%s): neither whole nor spans", i, export.Quib)
		}
		for _, s := range export.Spans {
			if s[1] <= s[0] || s[0] < 0 {
				Err.Fatalf("record %d (%s): bad span %v", i, export.Quib, s)
			}
		}
	}
	Out.Printf("%s: %d records ok", path, len(exports))
}

// later records win over earlier ones on replay, so b's records go
// after a's
func mergeOverrides(opts docopt.Opts) {
	aPath, _ := opts.String("<a>")
	bPath, _ := opts.String("<b>")
	outPath, _ := opts.String("--out")

	mergeLog := quib.SubLogFn(quib.LogLevelDebug, clog, "merge")
	mergeLog("%s + %s -> %s", aPath, bPath, outPath)

	merged := append(readRecords(aPath), readRecords(bPath)...)
	encoded, err := quib.EncodeOverrideRecords(merged)
	if err != nil {
		Err.Fatalf("%s", err)
	}
	if err := os.WriteFile(outPath, encoded, 0644); err != nil {
		Err.Fatalf("%s: %s", outPath, err)
	}
	Out.Printf("%s: %d records", outPath, len(merged))
}
