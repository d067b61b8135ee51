package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator for input. Prompts are written to Out.
type Prompter struct {
	Interactive bool

	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads from stdin; it is interactive only when stdin is a terminal
func NewPrompter() *Prompter {
	return &Prompter{
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stderr,
	}
}

// NewScriptedPrompter answers prompts from in, treating it as interactive
func NewScriptedPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{Interactive: true, in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine() string {
	input, _ := p.in.ReadString('\n')
	return strings.TrimSpace(input)
}

// PromptString prompts for a string input
func (p *Prompter) PromptString(prompt string) string {
	fmt.Fprintf(p.out, "%s: ", prompt)
	return p.readLine()
}

// PromptStringWithDefault prompts for a string with a default value
func (p *Prompter) PromptStringWithDefault(prompt, defaultValue string) string {
	fmt.Fprintf(p.out, "%s [%s]: ", prompt, defaultValue)
	if input := p.readLine(); input != "" {
		return input
	}
	return defaultValue
}

// PromptConfirm prompts for yes/no confirmation, defaulting to no
func (p *Prompter) PromptConfirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	input := strings.ToLower(p.readLine())
	return input == "y" || input == "yes"
}
