package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCredit       = "credit"
	ObjectSubscription = "subscription"
)

const (
	ActionRead   = "read"
	ActionDeduct = "deduct"
	ActionTopUp  = "topup"
	ActionWrite  = "write"
)

const (
	ActorService  = "service"
	ActorOperator = "operator"
	ActorSystem   = "system"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, tenantID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	tenant, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tenant == 0 {
		return ErrInvalidTenant
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := resolveActor(actor)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("tenant:%s", tenant.String())
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor", subject),
			zap.String("tenant_id", tenant.String()),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// resolveActor maps "<type>:<id>" to its casbin subject and role. "system" alone is accepted.
func resolveActor(actor string) (string, string, error) {
	actorType, actorID, _ := strings.Cut(actor, ":")
	actorType = strings.ToLower(strings.TrimSpace(actorType))
	actorID = strings.TrimSpace(actorID)

	switch actorType {
	case ActorSystem:
		if actorID == "" {
			return ActorSystem, "role:system", nil
		}
	case ActorService, ActorOperator:
		if actorID == "" {
			return "", "", ErrInvalidActor
		}
	default:
		return "", "", ErrInvalidActor
	}
	return actorType + ":" + actorID, "role:" + actorType, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Messaging services check and spend credits.
		{"role:service", ObjectCredit, ActionRead},
		{"role:service", ObjectCredit, ActionDeduct},

		// Operators grant top-ups.
		{"role:operator", ObjectCredit, ActionRead},
		{"role:operator", ObjectCredit, ActionTopUp},

		{"role:system", ObjectCredit, ActionRead},
		{"role:system", ObjectCredit, ActionDeduct},
		{"role:system", ObjectCredit, ActionTopUp},
		{"role:system", ObjectSubscription, ActionWrite},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
