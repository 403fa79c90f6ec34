package audit

import (
	"github.com/fieldserve/tradebill/internal/audit/repository"
	"github.com/fieldserve/tradebill/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
