package publicquote

import (
	"github.com/fieldserve/tradebill/internal/publicquote/repository"
	"github.com/fieldserve/tradebill/internal/publicquote/service"
	"go.uber.org/fx"
)

var Module = fx.Module("publicquote.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
