package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"analyst-ai/chat"
	"analyst-ai/utils"
)

// command is a parsed slash command
type command struct {
	Name string
	Args []string
	Rest string // everything after the name, untouched
}

func parseCommand(input string) command {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), "/"))
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	return command{
		Name: strings.ToLower(name),
		Args: strings.Fields(rest),
		Rest: rest,
	}
}

const helpText = `Commands:
  /attach <path>                  stage a document (.pdf .docx .txt .html)
  /files                          list staged documents
  /remove <n>                     unstage document n
  /clear-files                    unstage all documents
  /prefix list                    list saved prompt prefixes
  /prefix use <n>                 prepend prefix n to every message
  /prefix none                    stop using a prefix
  /prefix show [n]                show the full text of a prefix
  /prefix save [-use] <name> | <content>
  /prefix edit <n> [-use] <name> | <content>
  /prefix delete <n>
  /key <value>                    set the API key
  /key clear                      remove the stored API key
  /reset                          start a new session
  /show                           render the last reply as Markdown
  /export <path>                  save the conversation (.md, .json or .yaml)
  /status                         show session state
  /help                           show this help
  /quit                           exit`

// execute runs cmd and reports whether the shell should keep going
func (s *Shell) execute(ctx context.Context, cmd command) (bool, error) {
	switch cmd.Name {
	case "quit", "exit", "q":
		return false, nil
	case "help", "?":
		fmt.Fprintln(s.out, commandStyle.Render(helpText))
	case "attach":
		return true, s.attach(cmd.Rest)
	case "files":
		s.listFiles()
	case "remove":
		n, err := indexArg(cmd.Args, len(s.app.Files()))
		if err != nil {
			return true, err
		}
		s.app.RemoveFile(n)
		s.listFiles()
	case "clear-files":
		s.app.ClearFiles()
		s.printInfo("All attachments removed.")
	case "prefix":
		return true, s.prefixCommand(cmd)
	case "key":
		return true, s.keyCommand(cmd)
	case "reset", "new":
		s.app.ResetSession()
	case "show":
		text, ok := lastReply(s.app.Transcript())
		if !ok {
			s.printInfo("Nothing to show yet.")
			return true, nil
		}
		fmt.Fprint(s.out, s.markdown.Render(text))
	case "export":
		return true, s.export(cmd.Rest)
	case "status":
		s.status()
	default:
		return true, fmt.Errorf("unknown command /%s, type /help for a list", cmd.Name)
	}
	return true, nil
}

func (s *Shell) attach(path string) error {
	if path == "" {
		return errors.New("usage: /attach <path>")
	}
	f, err := utils.LoadStagedFile(strings.Trim(path, `"'`))
	if err != nil {
		return err
	}
	if err := s.app.AddFile(f); err != nil {
		return err
	}
	s.listFiles()
	return nil
}

func (s *Shell) listFiles() {
	files := s.app.Files()
	if len(files) == 0 {
		s.printInfo("No files attached.")
		return
	}
	for i, f := range files {
		fmt.Fprintf(s.out, "  %d. %s (%s)\n", i+1, f.Name, utils.FormatSizeMB(f.Size))
	}
}

func (s *Shell) prefixCommand(cmd command) error {
	sub := "list"
	if len(cmd.Args) > 0 {
		sub = strings.ToLower(cmd.Args[0])
	}
	prefixes := s.app.Prefixes()

	switch sub {
	case "list", "ls":
		s.listPrefixes(prefixes)
	case "none", "off":
		return s.app.SelectPrefix("")
	case "use":
		p, err := prefixArg(cmd.Args[1:], prefixes)
		if err != nil {
			return err
		}
		if err := s.app.SelectPrefix(p.ID); err != nil {
			return err
		}
		s.printInfo("Using prefix %q.", p.Name)
	case "show":
		p, ok := s.app.ActivePrefix()
		if len(cmd.Args) > 1 {
			var err error
			if p, err = prefixArg(cmd.Args[1:], prefixes); err != nil {
				return err
			}
			ok = true
		}
		if !ok {
			s.printInfo("No prefix selected.")
			return nil
		}
		fmt.Fprintf(s.out, "%s\n%s\n", activeStyle.Render(p.Name), p.Content)
	case "save", "add":
		autoApply, name, content, err := prefixBody(strings.TrimSpace(strings.TrimPrefix(cmd.Rest, cmd.Args[0])))
		if err != nil {
			return err
		}
		p, err := s.app.SavePrefix("", name, content, autoApply)
		if err != nil {
			return err
		}
		s.printInfo("Saved prefix %q.", p.Name)
	case "edit":
		target, err := prefixArg(cmd.Args[1:], prefixes)
		if err != nil {
			return err
		}
		body := strings.TrimSpace(strings.TrimPrefix(cmd.Rest, cmd.Args[0]))
		body = strings.TrimSpace(strings.TrimPrefix(body, cmd.Args[1]))
		autoApply, name, content, err := prefixBody(body)
		if err != nil {
			return err
		}
		p, err := s.app.SavePrefix(target.ID, name, content, autoApply)
		if err != nil {
			return err
		}
		s.printInfo("Updated prefix %q.", p.Name)
	case "delete", "rm":
		p, err := prefixArg(cmd.Args[1:], prefixes)
		if err != nil {
			return err
		}
		if err := s.app.DeletePrefix(p.ID); err != nil {
			return err
		}
		s.printInfo("Deleted prefix %q.", p.Name)
	default:
		return fmt.Errorf("unknown prefix command %q", sub)
	}
	return nil
}

func (s *Shell) listPrefixes(prefixes []chat.Prefix) {
	if len(prefixes) == 0 {
		s.printInfo("No saved prefixes.")
		return
	}
	active, hasActive := s.app.ActivePrefix()
	for i, p := range prefixes {
		marker := " "
		name := p.Name
		if hasActive && p.ID == active.ID {
			marker = "*"
			name = activeStyle.Render(name)
		}
		fmt.Fprintf(s.out, "%s %d. %s\n     %s\n", marker, i+1, name, infoStyle.Render(chat.Preview(p.Content)))
	}
}

func (s *Shell) keyCommand(cmd command) error {
	if cmd.Rest == "" {
		if s.app.HasCredential() {
			s.printInfo("An API key is stored. Use /key clear to remove it.")
		} else {
			s.printInfo("No API key stored. Use /key <value> to set one.")
		}
		return nil
	}
	if strings.EqualFold(cmd.Rest, "clear") {
		if err := s.app.ClearCredential(); err != nil {
			return err
		}
		s.printInfo("API key removed.")
		return nil
	}
	return s.app.SetCredential(cmd.Rest)
}

func (s *Shell) export(path string) error {
	if path == "" {
		path = utils.GenerateExportFilename("analyst-ai", utils.FormatMarkdown)
	}
	if err := utils.ExportTranscript(s.app.Transcript(), path); err != nil {
		return err
	}
	s.printInfo("Conversation saved to %s.", path)
	return nil
}

func (s *Shell) status() {
	state := s.app.State()
	fmt.Fprintf(s.out, "  service: %s\n  session: %s\n  api key: %t\n  files:   %d\n",
		s.app.ServiceName(), state, s.app.HasCredential(), len(s.app.Files()))
	if p, ok := s.app.ActivePrefix(); ok {
		fmt.Fprintf(s.out, "  prefix:  %s\n", p.Name)
	}
}

// indexArg parses a 1-based position into a 0-based index
func indexArg(args []string, count int) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("a number is required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > count {
		return 0, fmt.Errorf("no entry numbered %s", args[0])
	}
	return n - 1, nil
}

// prefixArg resolves a prefix by list position or id
func prefixArg(args []string, prefixes []chat.Prefix) (chat.Prefix, error) {
	if len(args) == 0 {
		return chat.Prefix{}, errors.New("a prefix number is required")
	}
	if n, err := strconv.Atoi(args[0]); err == nil {
		if n < 1 || n > len(prefixes) {
			return chat.Prefix{}, fmt.Errorf("no prefix numbered %d", n)
		}
		return prefixes[n-1], nil
	}
	for _, p := range prefixes {
		if p.ID == args[0] {
			return p, nil
		}
	}
	return chat.Prefix{}, &chat.NotFoundError{Kind: "prefix", ID: args[0]}
}

// prefixBody parses "[-use] <name> | <content>"
func prefixBody(body string) (autoApply bool, name, content string, err error) {
	body = strings.TrimSpace(body)
	if fields := strings.Fields(body); len(fields) > 0 && fields[0] == "-use" {
		autoApply = true
		body = strings.TrimSpace(strings.TrimPrefix(body, "-use"))
	}
	name, content, found := strings.Cut(body, "|")
	if !found {
		return false, "", "", errors.New("usage: <name> | <content>")
	}
	return autoApply, strings.TrimSpace(name), strings.TrimSpace(content), nil
}
