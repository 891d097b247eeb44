package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers line by line from the command's input.
type prompter struct {
	raw io.Reader
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{raw: in, in: bufio.NewReader(in), out: out}
}

// ask prints label and returns the trimmed next line. io.EOF is returned at end of input.
func (p *prompter) ask(label string) (string, error) {
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// fill prompts for *value when it is empty.
func (p *prompter) fill(value *string, label string) error {
	if *value != "" {
		return nil
	}
	v, err := p.ask(label)
	if err != nil {
		return err
	}
	*value = v
	return nil
}

// secret is fill without echo when the input is a terminal.
func (p *prompter) secret(value *string, label string) error {
	if *value != "" {
		return nil
	}
	f, ok := p.raw.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.fill(value, label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return err
	}
	*value = string(b)
	return nil
}
