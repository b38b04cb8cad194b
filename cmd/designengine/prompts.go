package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"designengine/internal/schema"
)

// prompter runs the terminal question/answer loop. Reader and writer are
// injected so the flow is testable without a TTY.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine() string {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// askText repeats the prompt until a non-empty answer arrives.
func (p *prompter) askText(prompt string) string {
	for {
		fmt.Fprintf(p.out, "%s: ", prompt)
		if ans := p.readLine(); ans != "" {
			return ans
		}
		fmt.Fprintln(p.out, "Please enter a value.")
	}
}

// askSingleChoice shows numbered options and returns the chosen one. A
// choice matching the catch-all option is replaced by free text.
func (p *prompter) askSingleChoice(prompt string, options []string) string {
	for {
		fmt.Fprintln(p.out, prompt)
		for i, opt := range options {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprint(p.out, "Select one: ")
		n, err := strconv.Atoi(p.readLine())
		if err != nil || n < 1 || n > len(options) {
			fmt.Fprintln(p.out, "Invalid selection.")
			continue
		}
		choice := options[n-1]
		if schema.IsOtherChoice(choice) {
			return p.askText("Please specify")
		}
		return choice
	}
}

// askMultiChoice accepts comma-separated option numbers and returns the
// selections in the order given, duplicates removed. Catch-all selections are
// each replaced by free text.
func (p *prompter) askMultiChoice(prompt string, options []string) []string {
	for {
		fmt.Fprintln(p.out, prompt)
		for i, opt := range options {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprint(p.out, "Select one or more (comma separated): ")
		fields := strings.Split(p.readLine(), ",")

		seen := make(map[int]bool)
		var picks []string
		valid := true
		for _, f := range fields {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			n, err := strconv.Atoi(f)
			if err != nil || n < 1 || n > len(options) {
				valid = false
				break
			}
			if seen[n] {
				continue
			}
			seen[n] = true
			choice := options[n-1]
			if schema.IsOtherChoice(choice) {
				choice = p.askText("Please specify")
			}
			picks = append(picks, choice)
		}
		if !valid || len(picks) == 0 {
			fmt.Fprintln(p.out, "Invalid selection.")
			continue
		}
		return picks
	}
}

// askOptionalMultiChoice is askMultiChoice with an empty answer allowed.
func (p *prompter) askOptionalMultiChoice(prompt string, options []string) []string {
	fmt.Fprintln(p.out, prompt)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprint(p.out, "Select zero or more (comma separated, empty to skip): ")
	raw := p.readLine()
	if raw == "" {
		return nil
	}
	seen := make(map[int]bool)
	var picks []string
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > len(options) || seen[n] {
			continue
		}
		seen[n] = true
		picks = append(picks, options[n-1])
	}
	return picks
}

// askCommaList collects a non-empty comma-separated free-text list.
func (p *prompter) askCommaList(prompt string) []string {
	for {
		raw := p.askText(prompt + " (comma separated)")
		var items []string
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				items = append(items, f)
			}
		}
		if len(items) > 0 {
			return items
		}
		fmt.Fprintln(p.out, "Please enter at least one item.")
	}
}
