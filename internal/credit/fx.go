package credit

import (
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/smallbiznis/commcredit/internal/credit/repository"
	"github.com/smallbiznis/commcredit/internal/credit/service"
	subscriptionservice "github.com/smallbiznis/commcredit/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) creditdomain.Service { return s }),
	fx.Provide(func(s *service.Service) subscriptionservice.Invalidator { return s }),
)
