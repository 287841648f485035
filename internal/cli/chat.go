package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/ashureev/learnerbot/internal/completion"
	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/progress"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var chatMode string

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with LearnerBot in the terminal",
		Long: `Start an interactive conversation. Progress is saved to the local profile.

Type the number of a suggested reply to send it. Commands:
  /progress  show level, XP and badges
  /quit      leave the conversation`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}
	cmd.Flags().StringVar(&chatMode, "mode", "", "reply backend: rules or completion (default $LEARNERBOT_MODE)")
	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Logs would interleave with the conversation, so only warnings reach stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode := cfg.Mode
	if chatMode != "" {
		mode = chat.Mode(strings.ToLower(chatMode))
	}
	if !mode.Valid() {
		return fmt.Errorf("unknown mode %q: want %q or %q", mode, chat.ModeRules, chat.ModeCompletion)
	}

	ctx := cmd.Context()
	kv, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(kv)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}

	engine := progress.NewEngine(progress.NewStore(kv), progress.StorageKey)
	client := completion.New(cfg.Completion)
	if mode == chat.ModeCompletion && !client.Configured() {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("OPENROUTER_API_KEY is not set; replies will fail. Try --mode rules."))
	}

	r := &repl{
		ctrl:     newController(mode, engine, client, logger),
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		renderer: renderer,
	}
	return r.run(ctx)
}

// repl drives one conversation from a line-oriented reader.
type repl struct {
	ctrl     *chat.Controller
	in       io.Reader
	out      io.Writer
	renderer *glamour.TermRenderer

	replies []string
}

func (r *repl) run(ctx context.Context) error {
	badge, err := r.ctrl.Start(ctx)
	if err != nil {
		r.warn("progress could not be saved: %v", err)
	}
	for _, m := range r.ctrl.Messages() {
		r.printBot(m)
	}
	if badge != nil {
		r.printBadges([]domain.Badge{*badge})
	}

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, promptStyle.Render("you › "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/progress":
			p, err := r.ctrl.Progress(ctx)
			if err != nil {
				r.warn("load progress: %v", err)
				continue
			}
			printProgress(r.out, p)
			continue
		}

		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(r.replies) {
			line = r.replies[n-1]
			fmt.Fprintln(r.out, mutedStyle.Render("  "+line))
		}

		res, err := r.ctrl.Submit(ctx, line)
		if err != nil {
			r.warn("%v", err)
			continue
		}
		r.printBot(res.Bot)
		if res.Progress != nil && !res.Failed {
			fmt.Fprintln(r.out, mutedStyle.Render(fmt.Sprintf("  +%d XP · level %d · %d XP to next level",
				chat.XPPerTurn, res.Progress.Level, res.Progress.XPToNextLevel())))
		}
		r.printBadges(res.NewBadges)
		if res.ProgressErr != nil {
			r.warn("progress could not be saved: %v", res.ProgressErr)
		}
	}
}

func (r *repl) printBot(m domain.Message) {
	if !m.IsBot() {
		return
	}
	name := "LearnerBot"
	if m.Emoji != "" {
		name = m.Emoji + " " + name
	}
	fmt.Fprintln(r.out, botNameStyle.Render(name))

	body, err := r.renderer.Render(m.Content)
	if err != nil {
		body = m.Content + "\n"
	}
	fmt.Fprint(r.out, body)

	r.replies = m.QuickReplies
	for i, reply := range m.QuickReplies {
		fmt.Fprintln(r.out, quickReplyStyle.Render(fmt.Sprintf("  [%d] %s", i+1, reply)))
	}
}

func (r *repl) printBadges(badges []domain.Badge) {
	for _, b := range badges {
		fmt.Fprintln(r.out, badgeStyle.Render(fmt.Sprintf("  %s Badge unlocked: %s (%s)", b.Emoji, b.Name, b.Description)))
	}
}

func (r *repl) warn(format string, args ...any) {
	fmt.Fprintln(r.out, warnStyle.Render("  "+fmt.Sprintf(format, args...)))
}
