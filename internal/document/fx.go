package document

import (
	"github.com/fieldserve/tradebill/internal/document/repository"
	"github.com/fieldserve/tradebill/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
