// Package cli runs a study session in the terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/session"
)

const help = "[enter/f] flip  [1-5 or fail/hard/good/easy/perfect] rate  [s] status  [q] quit"

// Console serializes writes to the terminal. The study loop, notices and the
// summary share one so their output never interleaves.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// print runs fn with exclusive access to the terminal.
func (c *Console) print(fn func(w io.Writer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.out)
}

// Study reads commands from in and drives a session machine.
type Study struct {
	machine *session.Machine
	in      *bufio.Reader
	console *Console
	poll    time.Duration

	bold   *color.Color
	faint  *color.Color
	prompt *color.Color
}

func NewStudy(machine *session.Machine, in io.Reader, console *Console) *Study {
	return &Study{
		machine: machine,
		in:      bufio.NewReader(in),
		console: console,
		poll:    20 * time.Millisecond,
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
		prompt:  color.New(color.FgCyan),
	}
}

// Run shows cards until the session ends, the input is exhausted or ctx is
// cancelled. Leaving early aborts the session.
func (s *Study) Run(ctx context.Context) error {
	s.println(s.faint.Sprint(help))

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			line, err := s.in.ReadString('\n')
			if line != "" || err == nil {
				select {
				case lines <- line:
				case <-done:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	s.render()
	for {
		select {
		case <-ctx.Done():
			s.machine.Abort()
			return ctx.Err()
		case <-s.machine.Done():
			return nil
		case err := <-readErr:
			if s.machine.Abort() {
				s.println(s.faint.Sprint("Session aborted."))
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("error reading input: %w", err)
		case line := <-lines:
			if finished := s.handle(ctx, strings.TrimSpace(line)); finished {
				return nil
			}
		}
	}
}

func (s *Study) handle(ctx context.Context, cmd string) bool {
	if v := s.machine.Snapshot(); v.State != session.StateActive {
		return true
	}

	switch strings.ToLower(cmd) {
	case "", "f", "flip":
		s.machine.Flip()
	case "s", "status":
		s.status()
		return false
	case "q", "quit":
		s.machine.Abort()
		s.println(s.faint.Sprint("Session aborted."))
		return true
	case "?", "h", "help":
		s.println(s.faint.Sprint(help))
		return false
	default:
		r, err := domain.ParseRating(cmd)
		if err != nil {
			s.println(fmt.Sprintf("Unknown command %q", cmd))
			return false
		}
		if !s.machine.Rate(ctx, r) {
			s.println(s.faint.Sprint("Flip the card before rating it."))
			return false
		}
		s.awaitTransition()
	}

	if s.machine.Snapshot().State != session.StateActive {
		return true
	}
	s.render()
	return false
}

func (s *Study) awaitTransition() {
	for {
		v := s.machine.Snapshot()
		if !v.Transitioning || v.State != session.StateActive {
			return
		}
		time.Sleep(s.poll)
	}
}

func (s *Study) println(line string) {
	s.console.print(func(w io.Writer) { fmt.Fprintln(w, line) })
}

func (s *Study) render() {
	v := s.machine.Snapshot()
	if v.State != session.StateActive {
		return
	}
	if v.Current == nil {
		s.println("This deck has no cards.")
		return
	}
	c := v.Current

	s.console.print(func(w io.Writer) {
		fmt.Fprintf(w, "\n%s  %s\n",
			s.faint.Sprintf("[%d/%d %s]", v.Index+1, v.DeckSize, domain.FormatClock(v.TimeRemaining)),
			s.bold.Sprint(c.Front),
		)
		if v.Face == session.Back {
			fmt.Fprintf(w, "  %s\n", c.Back)
			if c.Context != "" {
				fmt.Fprintf(w, "  %s\n", s.faint.Sprint(c.Context))
			}
			if c.ImageURL != "" {
				fmt.Fprintf(w, "  %s\n", s.faint.Sprint(c.ImageURL))
			}
			s.prompt.Fprint(w, "rate> ")
			return
		}
		s.prompt.Fprint(w, "> ")
	})
}

func (s *Study) status() {
	v := s.machine.Snapshot()
	s.println(fmt.Sprintf("%s left, %d studied, %d%% correct",
		domain.FormatClock(v.TimeRemaining), v.Stats.CardsStudied, v.Stats.Accuracy()))
}

// Notifier prints session notices.
type Notifier struct {
	console *Console
	warn    *color.Color
}

func NewNotifier(console *Console) *Notifier {
	return &Notifier{console: console, warn: color.New(color.FgYellow)}
}

func (n *Notifier) Notify(notice session.Notice) {
	n.console.print(func(w io.Writer) {
		n.warn.Fprintf(w, "\n! %s\n", notice.Message)
	})
}

// Reporter prints the summary of an expired session and passes it on to
// next, if any.
type Reporter struct {
	console *Console
	next    session.Reporter
}

func NewReporter(console *Console, next session.Reporter) *Reporter {
	return &Reporter{console: console, next: next}
}

func (r *Reporter) Report(ctx context.Context, summary domain.SessionSummary) error {
	r.console.print(func(w io.Writer) { PrintSummary(w, summary) })

	if r.next == nil {
		return nil
	}
	return r.next.Report(ctx, summary)
}

// PrintSummary writes the end-of-session screen.
func PrintSummary(out io.Writer, s domain.SessionSummary) {
	title := color.New(color.FgGreen, color.Bold)
	title.Fprintln(out, "\nTime's up!")
	fmt.Fprintf(out, "Cards studied:   %d\n", s.Stats.CardsStudied)
	fmt.Fprintf(out, "Correct answers: %d\n", s.Stats.CorrectAnswers)
	fmt.Fprintf(out, "Accuracy:        %d%%\n", s.Stats.Accuracy())
	fmt.Fprintf(out, "Duration:        %s\n", domain.FormatClock(int(s.Duration().Seconds())))
}
