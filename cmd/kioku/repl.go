package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bdobrica/Kioku/common/trace"
	"github.com/bdobrica/Kioku/internal/kioku/app"
	"github.com/bdobrica/Kioku/internal/kioku/observability"
)

// repl is the line-oriented shell over the conversation service. The
// reader and writer are injectable so tests can drive a scripted session.
type repl struct {
	app     *app.App
	scanner *bufio.Scanner
	out     io.Writer
	session string
}

func newREPL(a *app.App, in io.Reader, out io.Writer) *repl {
	return &repl{
		app:     a,
		scanner: bufio.NewScanner(in),
		out:     out,
		session: uuid.New().String(),
	}
}

// run processes input lines until /quit or EOF.
func (r *repl) run(ctx context.Context) {
	fmt.Fprintf(r.out, "session %s (type /help for commands)\n", r.session)
	for {
		fmt.Fprint(r.out, "> ")
		if !r.scanner.Scan() {
			fmt.Fprintln(r.out, "bye")
			return
		}
		line := strings.TrimSpace(r.scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "/"):
			if !r.command(line) {
				return
			}
		case strings.HasPrefix(line, "assistant:"):
			r.assistantTurn(ctx, strings.TrimSpace(strings.TrimPrefix(line, "assistant:")))
		default:
			r.userTurn(ctx, line)
		}
	}
}

// userTurn composes the enriched prompt from the history so far, then
// records the message as a user turn. Composition runs first so the
// current message is not duplicated into its own transcript.
func (r *repl) userTurn(ctx context.Context, text string) {
	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	observability.WithTrace(ctx).Debug("repl user turn", "session", r.session, "chars", len(text))
	prompt := r.app.Service().ComposePrompt(ctx, r.session, text)
	if _, err := r.app.Service().RecordUserTurn(ctx, r.session, text); err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, prompt)
}

func (r *repl) assistantTurn(ctx context.Context, text string) {
	if text == "" {
		fmt.Fprintln(r.out, "usage: assistant: <reply text>")
		return
	}
	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	observability.WithTrace(ctx).Debug("repl assistant turn", "session", r.session, "chars", len(text))
	if _, err := r.app.Service().RecordAssistantTurn(ctx, r.session, text); err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, "assistant reply recorded")
}

// command handles a slash command. Returns false when the shell should
// exit.
func (r *repl) command(line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/help":
		r.printHelp()
	case "/session":
		if len(args) > 0 {
			r.session = args[0]
		}
		fmt.Fprintf(r.out, "session %s\n", r.session)
	case "/history":
		r.printHistory()
	case "/context":
		r.printContext()
	case "/stats":
		r.printStats()
	case "/sweep":
		fmt.Fprintf(r.out, "swept %d idle sessions\n", r.app.SweepNow())
	case "/clear":
		if rec := r.app.Service().Clear(r.session); rec != nil {
			fmt.Fprintf(r.out, "session cleared (%d messages dropped)\n", rec.MessageCount())
		} else {
			fmt.Fprintln(r.out, "no active session")
		}
	case "/quit", "/exit":
		fmt.Fprintln(r.out, "bye")
		return false
	default:
		fmt.Fprintf(r.out, "unknown command %s (type /help)\n", cmd)
	}
	return true
}

func (r *repl) printHelp() {
	fmt.Fprint(r.out, `plain text        record a user turn and print the composed prompt
assistant: text   record a model reply
/session [id]     show or switch the active session
/history          print the session transcript
/context          print the extracted context
/stats            print runtime statistics
/sweep            evict idle sessions now
/clear            drop the active session
/quit             exit
`)
}

func (r *repl) printHistory() {
	msgs := r.app.Service().History(r.session)
	if len(msgs) == 0 {
		fmt.Fprintln(r.out, "no history")
		return
	}
	for _, m := range msgs {
		fmt.Fprintf(r.out, "[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Role, m.Content)
	}
}

func (r *repl) printContext() {
	meta := r.app.Service().ContextMetadata(r.session)
	if len(meta) == 0 {
		fmt.Fprintln(r.out, "no context extracted")
		return
	}
	categories := make([]string, 0, len(meta))
	for category := range meta {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		fmt.Fprintf(r.out, "%s: %s\n", category, strings.Join(meta[category], ", "))
	}
}

func (r *repl) printStats() {
	st := r.app.Status()
	fmt.Fprintf(r.out, "uptime:         %s\n", st.Uptime.Round(time.Second))
	fmt.Fprintf(r.out, "health:         %s", st.Health.Status)
	if st.Health.Reason != "" {
		fmt.Fprintf(r.out, " (%s)", st.Health.Reason)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "sessions:       %d active / %d max\n", st.Memory.ActiveSessions, st.Memory.MaxSessions)
	fmt.Fprintf(r.out, "heap:           %d MB alloc / %d MB sys\n", st.Memory.HeapAllocMB, st.Memory.HeapSysMB)
	c := st.Counters
	fmt.Fprintf(r.out, "conversations:  %d created, %d messages, %d context builds\n",
		c.ConversationsCreated, c.MessagesStored, c.ContextBuilds)
	fmt.Fprintf(r.out, "context builds: avg %.1f ms, max %d ms\n", c.AvgBuildMS, c.MaxBuildMS)
	fmt.Fprintf(r.out, "sweeps:         %d runs, %d sessions evicted\n", c.SweepRuns, c.SessionsSwept)
	fmt.Fprintf(r.out, "errors:         %d\n", c.Errors)
}
