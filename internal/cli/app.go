package cli

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/ashureev/learnerbot/internal/completion"
	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/progress"
	"github.com/ashureev/learnerbot/internal/responder"
)

// newController builds a conversation over engine. The backend and the
// controller share one id source so message ids sort in log order.
func newController(mode chat.Mode, engine *progress.Engine, client *completion.Client, logger *slog.Logger) *chat.Controller {
	ids := domain.NewIDSource()

	var backend chat.Backend
	switch mode {
	case chat.ModeCompletion:
		backend = chat.NewCompletionBackend(client, ids)
	default:
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		backend = chat.NewRuleBackend(responder.New(rng, responder.WithIDSource(ids)))
	}

	return chat.NewController(backend, engine,
		chat.WithIDSource(ids),
		chat.WithLogger(logger.With("mode", string(mode))),
	)
}
