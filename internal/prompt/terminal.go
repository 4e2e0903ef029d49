package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"kubeconfig-updater/internal/color"
)

// isTerminal is a package-level variable so tests can force either path.
var isTerminal = term.IsTerminal

// Terminal prompts on the controlling terminal. When In is a TTY each
// question is a small bubbletea program around a bubbles textinput; otherwise
// answers are read line by line, which keeps the tool scriptable.
type Terminal struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	lines       *bufio.Reader
}

// NewTerminal returns a Terminal reading from in and drawing to out.
func NewTerminal(in *os.File, out io.Writer) *Terminal {
	return &Terminal{
		in:          in,
		out:         out,
		interactive: isTerminal(int(in.Fd())),
	}
}

// newLineTerminal returns a non-interactive Terminal over an arbitrary reader.
func newLineTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

func (t *Terminal) Username(ctx context.Context, cluster, host string) (string, error) {
	title := fmt.Sprintf("Username for %s (%s)", cluster, host)
	answer, err := t.ask(ctx, title, "", false)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrEmptyInput
	}
	return answer, nil
}

func (t *Terminal) ElevationSecret(ctx context.Context, user, host string) (string, error) {
	title := fmt.Sprintf("sudo password for %s on %s", user, host)
	return t.ask(ctx, title, "used once for this run", true)
}

func (t *Terminal) LoginPassword(ctx context.Context, user, host string) (string, error) {
	title := fmt.Sprintf("Password for %s@%s", user, host)
	return t.ask(ctx, title, "", true)
}

func (t *Terminal) ask(ctx context.Context, title, hint string, secret bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !t.interactive {
		return t.readLine(title)
	}

	m := newInputModel(title, hint, secret)
	p := tea.NewProgram(m,
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("running prompt: %w", err)
	}

	result := final.(inputModel)
	if result.aborted || !result.done {
		return "", ErrAborted
	}
	return result.input.Value(), nil
}

func (t *Terminal) readLine(title string) (string, error) {
	if t.lines == nil {
		t.lines = bufio.NewReader(t.in)
	}
	fmt.Fprintf(t.out, "%s: ", title)
	line, err := t.lines.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		fmt.Fprintln(t.out)
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// inputModel is a single-question bubbletea model.
type inputModel struct {
	title   string
	hint    string
	input   textinput.Model
	done    bool
	aborted bool
}

func newInputModel(title, hint string, secret bool) inputModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()
	return inputModel{title: title, hint: hint, input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(color.TitleStyle.Render(m.title))
	if m.hint != "" {
		b.WriteString(" ")
		b.WriteString(color.MutedStyle.Render("(" + m.hint + ")"))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}
