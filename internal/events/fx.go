package events

import (
	"github.com/fieldserve/tradebill/internal/events/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("events",
	fx.Provide(repository.Provide),
)
