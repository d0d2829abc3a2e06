package auditorsession

import (
	"log/slog"
	"time"

	"adshift/contexts/ad-operations/auditor-session/adapters/httpclient"
	"adshift/contexts/ad-operations/auditor-session/application"
	"adshift/contexts/ad-operations/auditor-session/domain/entities"
	"adshift/contexts/ad-operations/auditor-session/ports"
)

type Module struct {
	Session *application.Session
}

type Dependencies struct {
	Store    ports.StoreAPI
	Clock    ports.Clock
	Actor    string
	Interval time.Duration
	OnNotice func(entities.Notice)
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Session: &application.Session{
			Store:    deps.Store,
			Clock:    deps.Clock,
			Actor:    deps.Actor,
			Interval: application.ClampInterval(deps.Interval),
			OnNotice: deps.OnNotice,
			Logger:   deps.Logger,
		},
	}
}

// NewHTTPModule builds a session that talks to the automation API at baseURL.
func NewHTTPModule(baseURL string, actor string, interval time.Duration, onNotice func(entities.Notice), logger *slog.Logger) Module {
	return NewModule(Dependencies{
		Store:    httpclient.New(baseURL),
		Actor:    actor,
		Interval: interval,
		OnNotice: onNotice,
		Logger:   logger,
	})
}
