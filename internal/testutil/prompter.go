// Package testutil holds test doubles shared by the package tests.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/nnorbert/codedam/pkg/api"
)

// ErrScriptExhausted is returned when a prompt arrives after every
// scripted answer was used.
var ErrScriptExhausted = errors.New("testutil: no scripted answer left")

// Answer is one scripted reply of a Prompter.
type Answer struct {
	Text   string
	Cancel bool
	Err    error

	// Gate, when set, holds the reply until it is closed or the prompt's
	// context ends.
	Gate <-chan struct{}
}

// Prompter replays scripted answers for PromptText and Confirm and
// records everything shown.
type Prompter struct {
	mu      sync.Mutex
	answers []Answer
	prompts []api.PromptRequest
	shown   []string
	showErr error
	started chan struct{}
}

func NewPrompter(answers ...Answer) *Prompter {
	return &Prompter{answers: answers, started: make(chan struct{}, 64)}
}

// Gate returns a new gate channel and the func releasing it.
func Gate() (<-chan struct{}, func()) {
	ch := make(chan struct{})
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

// FailShow makes every later Show call return err.
func (p *Prompter) FailShow(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.showErr = err
}

// Started receives one value each time a prompt begins.
func (p *Prompter) Started() <-chan struct{} { return p.started }

func (p *Prompter) next(ctx context.Context) (Answer, error) {
	p.mu.Lock()
	if len(p.answers) == 0 {
		p.mu.Unlock()
		return Answer{}, ErrScriptExhausted
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	p.mu.Unlock()

	select {
	case p.started <- struct{}{}:
	default:
	}

	if a.Gate != nil {
		select {
		case <-a.Gate:
		case <-ctx.Done():
			return Answer{}, ctx.Err()
		}
	}
	return a, a.Err
}

func (p *Prompter) PromptText(ctx context.Context, req api.PromptRequest) (string, bool, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, req)
	p.mu.Unlock()

	a, err := p.next(ctx)
	if err != nil {
		return "", false, err
	}
	return a.Text, !a.Cancel, nil
}

func (p *Prompter) Confirm(ctx context.Context, message string) (bool, error) {
	a, err := p.next(ctx)
	if err != nil {
		return false, err
	}
	if a.Cancel {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(a.Text)) {
	case "y", "yes", "true":
		return true, nil
	}
	return false, nil
}

func (p *Prompter) Show(ctx context.Context, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.showErr != nil {
		return p.showErr
	}
	p.shown = append(p.shown, message)
	return nil
}

// Shown returns every message passed to Show, in order.
func (p *Prompter) Shown() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.shown...)
}

// Prompts returns every text prompt request received.
func (p *Prompter) Prompts() []api.PromptRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]api.PromptRequest(nil), p.prompts...)
}
