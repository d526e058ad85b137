// Command receipt-extract runs field extraction over OCR text read from a
// file or stdin and prints the result as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-digitizer/internal/extraction"
)

// fixedClock pins the current year used for dates printed without one
type fixedClock time.Time

func (c fixedClock) Now() time.Time {
	return time.Time(c)
}

func main() {
	flags := ff.NewFlagSet("receipt-extract")
	var (
		today  = flags.StringLong("today", "", "Treat this YYYY-MM-DD date as today")
		indent = flags.BoolLong("indent", "Indent the JSON output")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_EXTRACT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	extractor := extraction.New()
	if *today != "" {
		t, err := time.Parse(time.DateOnly, *today)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid --today: %v\n", err)
			os.Exit(1)
		}
		extractor = extraction.NewWithClock(fixedClock(t))
	}

	var in io.Reader = os.Stdin
	if args := flags.GetArgs(); len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: reading input: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if *indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(extractor.Extract(string(raw))); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
