// Package console implements the prompter of the command line runner: it
// shows messages on a writer and reads answers line by line from a reader.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nnorbert/codedam/pkg/api"
)

// Console is an api.Prompter over a line-oriented terminal. Reads happen
// on one background goroutine so a prompt can be abandoned when its
// context ends; a line typed afterwards answers the next prompt.
type Console struct {
	in  io.Reader
	out io.Writer

	start sync.Once
	lines chan string
	err   error // end of input; read before lines is closed

	mu sync.Mutex // serializes writes to out
}

var _ api.Prompter = (*Console)(nil)

// New returns a console reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out, lines: make(chan string)}
}

func (c *Console) read() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.lines <- strings.TrimRight(scanner.Text(), "\r")
	}
	c.err = scanner.Err()
	if c.err == nil {
		c.err = io.EOF
	}
}

// ReadLine returns the next input line without its line ending. It
// returns io.EOF at the end of input and ctx.Err() when ctx ends first.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	c.start.Do(func() { go c.read() })
	select {
	case text, ok := <-c.lines:
		if !ok {
			return "", c.err
		}
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Console) printf(format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, format, args...)
	return err
}

// PromptText shows the request and reads one line. An empty line selects
// the default. The end of input cancels the prompt.
func (c *Console) PromptText(ctx context.Context, req api.PromptRequest) (string, bool, error) {
	prompt := req.Message
	if req.Title != "" {
		prompt = req.Title + ": " + prompt
	}
	if req.Default != "" {
		prompt += " [" + req.Default + "]"
	}
	if err := c.printf("%s> ", prompt); err != nil {
		return "", false, err
	}

	text, err := c.ReadLine(ctx)
	switch {
	case err == io.EOF:
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	if text == "" {
		text = req.Default
	}
	return text, true, nil
}

// Show writes message on its own line.
func (c *Console) Show(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.printf("%s\n", message)
}

// Confirm asks a yes or no question. Only y and yes, in any case, count
// as yes; the end of input counts as no.
func (c *Console) Confirm(ctx context.Context, message string) (bool, error) {
	if err := c.printf("%s [y/N]> ", message); err != nil {
		return false, err
	}
	text, err := c.ReadLine(ctx)
	switch {
	case err == io.EOF:
		return false, nil
	case err != nil:
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
