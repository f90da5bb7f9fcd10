package monitor

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/co2monitor/internal/recorder"
)

// promptMsg asks the UI for a destination path.
type promptMsg struct {
	suggested string
	reply     chan<- promptReply
}

type promptReply struct {
	path      string
	cancelled bool
}

// Prompter bridges the recorder's destination callback to the running
// program: Choose posts a prompt into the UI and blocks for the answer.
type Prompter struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// Attach connects the prompter to a program, normally (*tea.Program).Send.
func (p *Prompter) Attach(send func(tea.Msg)) {
	p.mu.Lock()
	p.send = send
	p.mu.Unlock()
}

// Choose implements recorder.DestinationFunc. Without an attached program it
// accepts the suggestion as is.
func (p *Prompter) Choose(ctx context.Context, suggested string) (string, error) {
	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send == nil {
		return suggested, nil
	}

	reply := make(chan promptReply, 1)
	send(promptMsg{suggested: suggested, reply: reply})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-reply:
		if r.cancelled {
			return "", recorder.ErrCancelled
		}
		return r.path, nil
	}
}

// lineEditor is the minimal single-line input used by the path prompt.
type lineEditor struct {
	value []rune
}

func (e *lineEditor) set(s string) { e.value = []rune(s) }

func (e *lineEditor) String() string { return string(e.value) }

// handle applies an editing key and reports whether it was consumed.
func (e *lineEditor) handle(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		e.value = append(e.value, msg.Runes...)
		if msg.Type == tea.KeySpace && len(msg.Runes) == 0 {
			e.value = append(e.value, ' ')
		}
	case tea.KeyBackspace:
		if len(e.value) > 0 {
			e.value = e.value[:len(e.value)-1]
		}
	case tea.KeyCtrlU:
		e.value = e.value[:0]
	case tea.KeyCtrlW:
		e.value = []rune(trimLastSegment(string(e.value)))
	default:
		return false
	}
	return true
}

// trimLastSegment drops the last path element, keeping the separator.
func trimLastSegment(s string) string {
	if s == "" {
		return s
	}
	end := len(s)
	if s[end-1] == '/' {
		end--
	}
	for i := end - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[:i+1]
		}
	}
	return ""
}
