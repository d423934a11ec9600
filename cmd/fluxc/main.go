// Command fluxc is the host-side front end for the fluxcore compiler: a
// REPL that reads submission source from stdin and feeds it through the
// pipeline, and a `serve` mode that exposes the same pipeline over gRPC.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"google.golang.org/grpc"

	"github.com/funvibe/fluxcore/internal/config"
	"github.com/funvibe/fluxcore/internal/env"
	"github.com/funvibe/fluxcore/internal/pipeline"
	"github.com/funvibe/fluxcore/internal/rpc"
	"github.com/funvibe/fluxcore/internal/session"
	"github.com/funvibe/fluxcore/internal/syntax"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, colorize(31, err.Error()))
		os.Exit(1)
	}
}

func run(args []string) error {
	cfgPath := ""
	if dir, err := os.Getwd(); err == nil {
		if found, err := config.FindConfig(dir); err == nil {
			cfgPath = found
		}
	}

	cfg := &config.Config{}
	if cfgPath != "" {
		loaded, err := config.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	e := env.New()
	if err := cfg.Apply(e.Nodes); err != nil {
		return fmt.Errorf("applying device config: %w", err)
	}

	dsn := cfg.SessionDB
	if dsn == "" {
		dsn = ":memory:"
	}
	store, err := session.Open(dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	p := pipeline.New(e)

	if len(args) > 0 && args[0] == "serve" {
		addr := cfg.Listen
		if addr == "" {
			addr = ":50051"
		}
		return serve(p, store, addr)
	}
	return repl(p, store)
}

func serve(p *pipeline.Pipeline, store *session.Store, addr string) error {
	svc, err := rpc.NewService(p, syntax.ParseSubmissions)
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv := grpc.NewServer()
	svc.Register(srv)
	log.Printf("fluxc: serving CompilerService on %s", addr)
	return srv.Serve(lis)
}

// repl reads submission batches from stdin, one batch per block of lines
// ended by a blank line (or EOF), parses each, and submits it to the
// pipeline, printing the accepted byte-code length or the rejection error.
func repl(p *pipeline.Pipeline, store *session.Store) error {
	scanner := bufio.NewScanner(os.Stdin)
	var block strings.Builder

	flush := func() {
		src := strings.TrimSpace(block.String())
		block.Reset()
		if src == "" {
			return
		}
		subs, err := syntax.ParseSubmissions(src)
		if err != nil {
			fmt.Fprintln(os.Stderr, colorize(31, "parse error: "+err.Error()))
			return
		}
		res, err := p.Submit(subs)
		ctx := context.Background()
		if err != nil {
			_ = store.RecordSubmission(ctx, uuid.New(), false, 0)
			fmt.Fprintln(os.Stderr, colorize(31, "rejected: "+err.Error()))
			return
		}
		_ = store.RecordSubmission(ctx, res.SubmissionID, true, len(res.Bytecode))
		_ = store.SyncSlots(ctx, p.Env)
		fmt.Println(colorize(32, fmt.Sprintf("ok: submission %s, %d bytes", res.SubmissionID, len(res.Bytecode))))
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block.WriteString(line)
		block.WriteByte('\n')
	}
	flush()
	return scanner.Err()
}

// colorize wraps s in an ANSI color code when stdout is a real terminal
// and the user hasn't opted out via NO_COLOR.
func colorize(code int, s string) string {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return s
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return s
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", code, s)
}
