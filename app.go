package main

import (
	"context"
	"fmt"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	goredis "github.com/redis/go-redis/v9"
	"github.com/tanpawarit/Chative-Helpdesk-Router/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	specialistx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/agents/specialist"
	llmx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/llm"
	"github.com/tanpawarit/Chative-Helpdesk-Router/agent/observers"
	configx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/config"
	"github.com/tanpawarit/Chative-Helpdesk-Router/pkg/docstore"
	logx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/logger"
	qstashx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/qstash"
	redisx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/redis"
	"github.com/tanpawarit/Chative-Helpdesk-Router/pkg/websearch"
)

type app struct {
	orch  *orchestrator.Orchestrator
	docs  *docstore.Store
	redis *goredis.Client
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func loadDocs(ctx context.Context) (*docstore.Store, error) {
	cfg, err := configx.New[docstore.Config]("DOCS")
	if err != nil {
		return nil, err
	}
	store, err := docstore.Open(ctx, *cfg)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	logx.Info().Int("documents", store.Len()).Str("dir", cfg.Dir).Msg("document store loaded")
	return store, nil
}

// newSearch builds the web search provider and its optional cache. The
// returned client is non-nil only for the redis cache and must be closed.
func newSearch(ctx context.Context) (websearch.Provider, *goredis.Client, error) {
	cfg, err := configx.New[websearch.Config]("SEARCH")
	if err != nil {
		return nil, nil, err
	}

	var (
		cache  websearch.Cache
		client *goredis.Client
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Cache)) {
	case "", websearch.CacheNone:
	case websearch.CacheRedis:
		redisCfg, err := configx.New[redisx.Config]("REDIS")
		if err != nil {
			return nil, nil, err
		}
		client, err = redisCfg.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		cache = websearch.NewRedisCache(client, "")
	case websearch.CacheUpstash:
		upCfg, err := configx.New[websearch.UpstashConfig]("SEARCH_UPSTASH")
		if err != nil {
			return nil, nil, err
		}
		cache, err = websearch.NewUpstashCache(*upCfg)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown search cache %q", cfg.Cache)
	}

	provider, err := websearch.New(*cfg, cache)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, nil, err
	}
	logx.Info().Str("provider", cfg.Provider).Str("cache", cfg.Cache).Msg("web search ready")
	return provider, client, nil
}

func newApp(ctx context.Context) (*app, error) {
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, err
	}
	agentCfg, err := configx.New[specialistx.Config]("AGENT")
	if err != nil {
		return nil, err
	}

	docs, err := loadDocs(ctx)
	if err != nil {
		return nil, err
	}
	search, client, err := newSearch(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{docs: docs, redis: client}

	models, err := specialistx.NewRegistry(ctx, *llmCfg, specialistx.Deps{
		Docs:      docs,
		Search:    search,
		Callbacks: []einocb.Handler{observers.NewAllCallbacks()},
		Config:    *agentCfg,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	var opts []orchestrator.Option
	qCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		a.Close()
		return nil, err
	}
	if qCfg.Enabled() {
		client, err := qstashx.NewClient(*qCfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, orchestrator.WithPublisher(resultPublisher{client}))
		logx.Info().Str("destination", qCfg.Destination).Msg("publishing run results via qstash")
	}

	a.orch, err = orchestrator.New(models, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

type resultPublisher struct {
	client *qstashx.Client
}

func (p resultPublisher) Publish(ctx context.Context, res contractx.Result) error {
	id, err := p.client.PublishJSON(ctx, res)
	if err != nil {
		return err
	}
	logx.Debug().Str("run_id", res.RunID).Str("message_id", id).Msg("run result published")
	return nil
}
