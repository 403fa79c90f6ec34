package payment

import (
	"github.com/fieldserve/tradebill/internal/payment/repository"
	"github.com/fieldserve/tradebill/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
