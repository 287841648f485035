package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/ashureev/learnerbot/internal/completion"
	"github.com/ashureev/learnerbot/internal/progress"
	"github.com/ashureev/learnerbot/internal/store"
	"github.com/charmbracelet/glamour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	buf := new(bytes.Buffer)
	RootCmd.SetOut(buf)
	RootCmd.SetErr(buf)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})
	require.NoError(t, RootCmd.Execute())
	return buf.String()
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range RootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "chat", "progress", "models"} {
		assert.Contains(t, names, want)
	}
}

func TestProgressCommands(t *testing.T) {
	t.Setenv("LEARNERBOT_MODE", "rules")
	db := filepath.Join(t.TempDir(), "progress.db")

	assert.Contains(t, execute(t, "progress", "streak", "--db", db), "Streak: 1 days")
	assert.Contains(t, execute(t, "progress", "quiz", "--correct", "--db", db), "Quiz: 1/1 correct (100%)")
	assert.Contains(t, execute(t, "progress", "quiz", "--correct=false", "--db", db), "Quiz: 1/2 correct (50%)")

	out := execute(t, "progress", "--db", db)
	assert.Contains(t, out, "Level 1 · 0 XP · 100 XP to next level")
	assert.Contains(t, out, "Streak: 1 days")
	assert.Contains(t, out, "Quiz: 1/2 correct (50%)")
	assert.Contains(t, out, "Badges: 0/")
}

func TestREPLConversation(t *testing.T) {
	ps := progress.NewStore(store.NewMemory())
	engine := progress.NewEngine(ps, progress.StorageKey)
	renderer, err := glamour.NewTermRenderer(glamour.WithStylePath("notty"), glamour.WithWordWrap(80))
	require.NoError(t, err)

	out := new(bytes.Buffer)
	r := &repl{
		ctrl:     newController(chat.ModeRules, engine, completion.New(completion.Config{}), slog.Default()),
		in:       strings.NewReader("Tell me about space\n\n1\n/progress\n/quit\nnever read\n"),
		out:      out,
		renderer: renderer,
	}
	require.NoError(t, r.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Badge unlocked:", "first chat badge is announced")
	assert.Contains(t, text, "[1] Tell me about planets!")
	assert.Contains(t, text, "Level 1 · 20 XP · 80 XP to next level", "two turns earn XP")

	p, err := engine.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, p.XP)
	assert.Len(t, p.EarnedBadges(), 1)
}

func TestREPLEndsAtEOF(t *testing.T) {
	engine := progress.NewEngine(progress.NewStore(store.NewMemory()), progress.StorageKey)
	renderer, err := glamour.NewTermRenderer(glamour.WithStylePath("notty"))
	require.NoError(t, err)

	r := &repl{
		ctrl:     newController(chat.ModeRules, engine, completion.New(completion.Config{}), slog.Default()),
		in:       strings.NewReader("hello"),
		out:      new(bytes.Buffer),
		renderer: renderer,
	}
	require.NoError(t, r.run(context.Background()))
	assert.Len(t, r.ctrl.Messages(), 3)
}
