package scheduler

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/cuemby/edo/internal/environment"
	"github.com/cuemby/edo/internal/transform"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// consoleLock serializes the interactive retry prompt across concurrently
// running transforms, so two failing nodes don't interleave their menus on
// stdout.
var consoleLock sync.Mutex

// attempt runs t.Transform once and, on a retryable failure with
// interactive enabled on an actual terminal, offers a view-log/shell/retry/
// quit menu before giving up. A non-retryable failure or a non-TTY session
// never prompts — it's returned as-is for the caller to treat as a failed
// node.
func attempt(ctx context.Context, t transform.Transform, env environment.Environment, log zerolog.Logger, interactive bool) transform.Status {
	for {
		status := t.Transform(ctx, log, env)
		if status.Kind == transform.StatusSuccess {
			return status
		}
		if status.Kind != transform.StatusRetryable || !interactive || !isatty.IsTerminal(os.Stdin.Fd()) {
			return status
		}

		again, ok := prompt(t, env, log, status)
		if !ok {
			return status
		}
		if !again {
			return status
		}
	}
}

// prompt shows the interactive retry menu for one failed attempt. It
// returns (retry, handled): handled is false only if reading the choice
// from stdin fails; choosing quit returns (false, true). Either way a
// false retry means the caller treats the attempt as terminal.
func prompt(t transform.Transform, env environment.Environment, log zerolog.Logger, status transform.Status) (retry bool, handled bool) {
	consoleLock.Lock()
	defer consoleLock.Unlock()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprintf(os.Stderr, "\ntransform failed: %v\n", status.Err)
		fmt.Fprintln(os.Stderr, "options:")
		if status.LogFile != "" {
			fmt.Fprintln(os.Stderr, "  [l] view log")
		}
		if t.CanShell() {
			fmt.Fprintln(os.Stderr, "  [s] shell")
		}
		fmt.Fprintln(os.Stderr, "  [r] retry")
		fmt.Fprintln(os.Stderr, "  [q] quit")
		fmt.Fprint(os.Stderr, "> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return false, false
		}
		switch trimChoice(line) {
		case "l":
			if status.LogFile == "" {
				continue
			}
			if data, err := os.ReadFile(status.LogFile); err == nil {
				os.Stderr.Write(data)
			} else {
				log.Warn().Err(err).Msg("reading log file failed")
			}
		case "s":
			if !t.CanShell() {
				continue
			}
			if err := t.Shell(env); err != nil {
				log.Warn().Err(err).Msg("shell exited with error")
			}
		case "r":
			return true, true
		case "q":
			return false, true
		}
	}
}

func trimChoice(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
