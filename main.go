// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/prefixtree/v2"

	"github.com/beevik/asm64/asm"
)

var (
	outputFile  string
	formatName  string
	listingFile string
	symbolFile  string
	verbose     bool
	showCycles  bool
	showVersion bool
	defines     multiFlag
	includes    multiFlag
)

const version = "1.0.0"

// A multiFlag collects every occurrence of a repeatable option.
type multiFlag []string

func (f *multiFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *multiFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

// Output format names are matched through a prefix tree, so any
// unambiguous abbreviation works.
var formatTree = prefixtree.New[asm.OutputFormat]()

func init() {
	formatTree.Add("prg", asm.OutputPRG)
	formatTree.Add("raw", asm.OutputRaw)

	flag.StringVar(&outputFile, "o", "", "output filename (default: source.prg)")
	flag.StringVar(&formatName, "f", "prg", "output format: prg or raw")
	flag.StringVar(&listingFile, "l", "", "generate listing file")
	flag.StringVar(&symbolFile, "s", "", "generate symbol file (VICE format)")
	flag.BoolVar(&verbose, "v", false, "verbose output")
	flag.BoolVar(&showCycles, "cycles", false, "include cycle counts in listing")
	flag.BoolVar(&showVersion, "version", false, "show version")
	flag.Var(&defines, "D", "define symbol NAME[=VALUE] (repeatable)")
	flag.Var(&includes, "I", "add include search path (repeatable)")

	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: asm64 [options] <source.asm>\nOptions:")
		flag.PrintDefaults()
	}
}

// Derive the default output name from the source name.
func makeOutputFilename(input string, format asm.OutputFormat) string {
	ext := ".prg"
	if format == asm.OutputRaw {
		ext = ".bin"
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ext
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("asm64 version %s\n", version)
		fmt.Println("6502/6510 Cross-Assembler for Commodore 64")
		return
	}

	if flag.NArg() != 1 {
		flag.CommandLine.Usage()
		os.Exit(1)
	}
	inputFile := flag.Arg(0)

	format, err := formatTree.FindValue(strings.ToLower(formatName))
	if err != nil {
		exitOnError(fmt.Errorf("unknown format '%s'", formatName))
	}

	if outputFile == "" {
		outputFile = makeOutputFilename(inputFile, format)
	}

	a := asm.New()
	a.SetVerbose(verbose)
	a.SetShowCycles(showCycles)

	// Environment paths are added first, so they are searched before
	// the -I paths.
	a.AddIncludePathsFromEnv("ASM64_INCLUDE", string(os.PathListSeparator))
	for _, path := range includes {
		a.AddIncludePath(path)
	}

	for _, def := range defines {
		if err := a.DefineSymbol(def); err != nil {
			exitOnError(err)
		}
	}

	if verbose {
		fmt.Printf("asm64 %s\n", version)
		fmt.Printf("Input:  %s\n", inputFile)
		fmt.Printf("Output: %s\n", outputFile)
	}

	asmErr := a.AssembleFile(inputFile)
	if asmErr != nil && a.ErrorCount() == 0 {
		// Not an assembly problem: the source could not be read.
		exitOnError(asmErr)
	}

	if asmErr == nil {
		if err := a.WriteOutput(outputFile, format); err != nil {
			exitOnError(err)
		}
		if verbose {
			start, code := a.Output()
			if code != nil {
				fmt.Printf("Output: %s (%d bytes, $%04X-$%04X)\n",
					outputFile, len(code), start, int(start)+len(code)-1)
			}
		}

		if symbolFile != "" {
			if err := a.WriteSymbols(symbolFile); err != nil {
				exitOnError(err)
			}
		}
		if listingFile != "" {
			if err := a.WriteListing(listingFile); err != nil {
				exitOnError(err)
			}
		}
	}

	if n := a.ErrorCount(); n > 0 {
		fmt.Fprintf(os.Stderr, "%d error%s\n", n, plural(n))
		os.Exit(1)
	}
	if n := a.WarningCount(); n > 0 && verbose {
		fmt.Fprintf(os.Stderr, "%d warning%s\n", n, plural(n))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
