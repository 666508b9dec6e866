// Package admin is the operator command line: manager sessions and the
// student roster.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/app"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
	"github.com/nikhileshnr/mess-rebate-system/internal/roster"
)

const help = `Commands:
  session issue <manager> [ttl]   Issue a manager session token (ttl like 12h, default never expires)
  session list                    List live sessions
  session revoke <token>          Revoke a session
  students import <file.xlsx>     Import or update students from a roster workbook
  students list [branch] [batch]  List students
  help                            Show this message`

// Students is the roster side of the store.
type Students interface {
	roster.Writer
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type commandHandler func(ctx context.Context, args []string) error

type Console struct {
	sessions *app.TokenManager
	students Students
	out      io.Writer
}

// NewConsole builds a console. sessions may be nil when no session store is
// configured; session commands then fail.
func NewConsole(sessions *app.TokenManager, students Students, out io.Writer) *Console {
	return &Console{sessions: sessions, students: students, out: out}
}

func (c *Console) route(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"session":  c.handleSession,
		"students": c.handleStudents,
		"help":     c.handleHelp,
	}
	handler, found := commands[cmd]
	return handler, found
}

// Run executes one command line.
func (c *Console) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.handleHelp(ctx, nil)
	}

	handler, ok := c.route(args[0])
	if !ok {
		c.handleHelp(ctx, nil)
		return fmt.Errorf("unknown command: %s", args[0])
	}
	if err := handler(ctx, args[1:]); err != nil {
		logger.Error.Printf("Command error: %v", err)
		return err
	}
	return nil
}

func (c *Console) handleHelp(_ context.Context, _ []string) error {
	_, err := fmt.Fprintln(c.out, help)
	return err
}

func (c *Console) handleSession(ctx context.Context, args []string) error {
	if c.sessions == nil {
		return errors.New("no session store configured, set auth.redis_url")
	}
	if len(args) < 1 {
		return errors.New("usage: session issue|list|revoke")
	}

	switch args[0] {
	case "issue":
		return c.handleSessionIssue(ctx, args[1:])
	case "list":
		return c.handleSessionList(ctx)
	case "revoke":
		if len(args) < 2 {
			return errors.New("usage: session revoke <token>")
		}
		if err := c.sessions.Revoke(ctx, args[1]); err != nil {
			return err
		}
		_, err := fmt.Fprintln(c.out, "revoked")
		return err
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func (c *Console) handleSessionIssue(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: session issue <manager> [ttl]")
	}

	var ttl time.Duration
	if len(args) > 1 {
		var err error
		if ttl, err = time.ParseDuration(args[1]); err != nil {
			return fmt.Errorf("bad ttl %q: %w", args[1], err)
		}
	}

	session, err := c.sessions.Issue(ctx, args[0], ttl)
	if err != nil {
		return err
	}
	logger.Info.Printf("Issued session for %s", session.Manager)
	_, err = fmt.Fprintln(c.out, session.Token)
	return err
}

func (c *Console) handleSessionList(ctx context.Context) error {
	sessions, err := c.sessions.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MANAGER\tTOKEN\tREQUESTS\tLAST REQUEST (UTC)")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Manager, s.Token, s.RequestCount, s.LastRequestTime.Format(time.DateTime))
	}
	return tw.Flush()
}

func (c *Console) handleStudents(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: students import|list")
	}

	switch args[0] {
	case "import":
		if len(args) < 2 {
			return errors.New("usage: students import <file.xlsx>")
		}
		return c.handleStudentsImport(ctx, args[1])
	case "list":
		return c.handleStudentsList(ctx, args[1:])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func (c *Console) handleStudentsImport(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	students, err := roster.Read(f)
	if err != nil {
		return err
	}
	n, err := roster.Import(ctx, c.students, students)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "imported %d students\n", n)
	return err
}

func (c *Console) handleStudentsList(ctx context.Context, args []string) error {
	var filter models.StudentFilter
	if len(args) > 0 {
		filter.Branch = strings.TrimSpace(args[0])
	}
	if len(args) > 1 {
		filter.Batch = models.NormalizeBatch(args[1])
	}

	students, err := c.students.ListStudents(ctx, filter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLL NO\tNAME\tBRANCH\tBATCH")
	for _, s := range students {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.RollNo, s.Name, s.Branch, s.Batch)
	}
	return tw.Flush()
}
