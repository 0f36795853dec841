package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"analyst-ai/chat"
	"analyst-ai/utils"
)

// Shell is the interactive terminal front end of chat.App
type Shell struct {
	app         *chat.App
	logger      *utils.Logger
	out         io.Writer
	markdown    *MarkdownRenderer
	historyFile string

	// notifyInterrupt routes SIGINT to c while a reply streams
	notifyInterrupt func(c chan<- os.Signal)

	mu   sync.Mutex
	view *transcriptView
}

// NewShell creates a shell writing to out and subscribes it to app changes
func NewShell(app *chat.App, logger *utils.Logger, out io.Writer) *Shell {
	s := &Shell{
		app:      app,
		logger:   logger,
		out:      out,
		markdown: NewMarkdownRenderer(80),
		view:     newTranscriptView(),
	}
	s.notifyInterrupt = func(c chan<- os.Signal) {
		signal.Notify(c, os.Interrupt)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		s.historyFile = filepath.Join(dir, "analyst-ai", "history")
	}
	app.Subscribe(s.onChange)
	return s
}

func (s *Shell) onChange(c chat.Change) {
	if c.Kind != chat.ChangeTranscript {
		return
	}
	s.refresh()
}

// refresh prints whatever changed in the transcript since the last call
func (s *Shell) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if out := s.view.update(s.app.Transcript()); out != "" {
		fmt.Fprint(s.out, out)
	}
}

// Run reads input lines until /quit, Ctrl+C or EOF
func (s *Shell) Run(ctx context.Context) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	s.loadHistory(line)
	defer s.saveHistory(line)

	fmt.Fprintln(s.out, infoStyle.Render(fmt.Sprintf("Connected to %s. Type /help for commands.", s.app.ServiceName())))
	s.refresh()
	fmt.Fprintln(s.out)

	for {
		input, err := line.Prompt(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		// API keys stay out of the history file
		if strings.TrimSpace(input) != "" && !strings.HasPrefix(strings.TrimSpace(input), "/key") {
			line.AppendHistory(input)
		}

		if !s.HandleLine(ctx, input) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
	}
}

// HandleLine executes one line of input. It returns false when the shell
// should exit.
func (s *Shell) HandleLine(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}

	if strings.HasPrefix(input, "/") {
		cmd := parseCommand(input)
		cont, err := s.execute(ctx, cmd)
		if err != nil {
			s.printError(err)
		}
		return cont
	}

	s.send(ctx, input)
	return true
}

// send streams one exchange. Ctrl+C while a reply streams only prints a
// notice; a reply runs to completion.
func (s *Shell) send(ctx context.Context, text string) {
	interrupts := make(chan os.Signal, 1)
	s.notifyInterrupt(interrupts)
	defer signal.Stop(interrupts)

	fmt.Fprintln(s.out, infoStyle.Render(chat.LoadingMessage))
	var err error
	done := utils.SafeGoWithError(s.logger, "send", func() error {
		return s.app.SendMessage(ctx, text)
	}, func(e error) {
		err = e
	})

wait:
	for {
		select {
		case <-done:
			break wait
		case <-interrupts:
			s.mu.Lock()
			fmt.Fprintln(s.out)
			fmt.Fprintln(s.out, warningStyle.Render(describeError(chat.ErrBusy)))
			s.mu.Unlock()
		}
	}
	fmt.Fprintln(s.out)

	if err != nil {
		var serviceErr *chat.ServiceError
		if errors.As(err, &serviceErr) {
			// The error text is already in the transcript
			s.logger.Debug("Send failed: %v", err)
			return
		}
		s.printError(err)
	}
}

func (s *Shell) prompt() string {
	label := "analyst"
	if p, ok := s.app.ActivePrefix(); ok {
		label += "[" + p.Name + "]"
	}
	if n := len(s.app.Files()); n > 0 {
		label += fmt.Sprintf("(+%d)", n)
	}
	// liner measures the prompt itself, so it must stay free of escape codes
	return label + "> "
}

func (s *Shell) printError(err error) {
	fmt.Fprintf(s.out, "%s %s\n", errorStyle.Render("[Error]"), describeError(err))
}

func (s *Shell) printInfo(format string, v ...interface{}) {
	fmt.Fprintln(s.out, infoStyle.Render(fmt.Sprintf(format, v...)))
}

// describeError maps chat errors to user-facing text
func describeError(err error) string {
	var fileErr *chat.FileReadError
	switch {
	case errors.Is(err, chat.ErrCredentialRequired):
		return "Please set your API key with /key <value> before sending messages."
	case errors.Is(err, chat.ErrBusy):
		return "Please wait for the current reply to finish."
	case errors.Is(err, chat.ErrNothingToSend):
		return "Type a message or attach a file first."
	case errors.As(err, &fileErr):
		return fmt.Sprintf("Could not read %s: %v", fileErr.Name, fileErr.Err)
	default:
		return err.Error()
	}
}

func (s *Shell) loadHistory(line *liner.State) {
	if s.historyFile == "" {
		return
	}
	if f, err := os.Open(s.historyFile); err == nil {
		if _, err := line.ReadHistory(f); err != nil {
			s.logger.Debug("Failed to read history: %v", err)
		}
		f.Close()
	}
}

func (s *Shell) saveHistory(line *liner.State) {
	if s.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.historyFile), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(s.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		s.logger.Debug("Failed to write history: %v", err)
	}
}
