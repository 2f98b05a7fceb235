package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nnorbert/codedam"
	"github.com/nnorbert/codedam/internal/console"
	"github.com/nnorbert/codedam/internal/ctxlog"
)

// Streams are the terminal the runner talks to. Logs go to Err so they
// never interleave with the program's own output on Out.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run loads the program described by cfg and executes it once, either
// auto-playing or waiting for Enter before every step. An interrupted ctx
// stops the run and is not reported as an error.
func Run(ctx context.Context, cfg *Config, streams Streams) error {
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, streams.Err)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Runner started.", "program", cfg.ProgramPath)

	con := console.New(streams.In, streams.Out)
	prog, err := codedam.LoadProgramFile(ctx, cfg.ProgramPath, con)
	if err != nil {
		return err
	}

	var observer codedam.Observer
	if cfg.JournalPath != "" {
		journal, err := codedam.OpenJournal(cfg.JournalPath)
		if err != nil {
			prog.Root.Destroy()
			return err
		}
		defer journal.Close()
		session := codedam.NewSessionID()
		observer = journal.Observer(session, logger)
		logger.Info("Journal enabled.", "path", cfg.JournalPath, "session", session)
	}

	s := codedam.NewSession(prog.Root, codedam.SessionConfig{Observer: observer, Logger: logger})
	defer s.Close()

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("start program: %w", err)
	}
	if cfg.StepMode {
		err = stepThrough(ctx, s, con, streams.Out)
	} else {
		err = autoPlay(ctx, s, cfg.PlayInterval(prog.Settings.Interval()), logger)
	}

	m := s.Metrics.Snapshot()
	logger.Info("Runner finished.",
		"status", s.Status(),
		"steps", m.Steps,
		"awaits", m.Awaits,
		"avg_await", m.AvgAwaitDuration,
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func autoPlay(ctx context.Context, s *codedam.Session, interval time.Duration, logger *slog.Logger) error {
	logger.Debug("Auto-play started.", "interval", interval)
	if err := s.Play(interval); err != nil {
		return err
	}
	if err := s.Wait(ctx); err != nil {
		s.Stop()
		return describe(err)
	}
	return nil
}

// stepThrough shows the program with the active line marked and advances
// one step per Enter. q or the end of input stops the run.
func stepThrough(ctx context.Context, s *codedam.Session, con *console.Console, out io.Writer) error {
	for {
		fmt.Fprint(out, s.Preview())
		fmt.Fprint(out, formatScope(s.Snapshot()))
		fmt.Fprint(out, "[enter] step, [q] quit> ")

		cmd, err := con.ReadLine(ctx)
		if err == io.EOF || strings.EqualFold(strings.TrimSpace(cmd), "q") {
			s.Stop()
			return nil
		}
		if err != nil {
			s.Stop()
			return err
		}

		res, err := s.Step(ctx)
		if err != nil {
			return describe(err)
		}
		if res.Done {
			fmt.Fprint(out, formatScope(s.Snapshot()))
			fmt.Fprintln(out, "finished")
			return nil
		}
	}
}

// formatScope lists the variables of every frame, outermost first.
func formatScope(snap codedam.Snapshot) string {
	var sb strings.Builder
	for _, f := range snap.Frames {
		if len(f.Variables) == 0 {
			continue
		}
		sb.WriteString(f.Name)
		sb.WriteString(":")
		for _, v := range f.Variables {
			fmt.Fprintf(&sb, " %s=%s", v.Name, codedam.FormatValue(v.Value))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func describe(err error) error {
	if _, ok := codedam.IsRuntimeError(err); ok {
		return fmt.Errorf("program failed: %w", err)
	}
	return err
}
