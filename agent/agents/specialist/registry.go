package specialist

import (
	"context"
	"fmt"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/llm"
	nodex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/nodes"
	promptx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/prompt"
	toolx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/tool"
)

// DocumentIndex is the document store as seen by the specialists.
type DocumentIndex interface {
	toolx.DocumentReader
	Filenames(domain string) []string
}

// Deps are the shared collaborators injected into every agent.
type Deps struct {
	Docs        DocumentIndex
	Search      toolx.Searcher
	Callbacks   []einocb.Handler
	Config      Config
	CallTimeout time.Duration
}

// Models holds one chat model per agent.
type Models struct {
	Router  einomodel.ToolCallingChatModel
	IT      einomodel.ToolCallingChatModel
	Finance einomodel.ToolCallingChatModel
}

type registryImpl struct {
	router  nodex.Router
	it      nodex.Specialist
	finance nodex.Specialist
}

func (r *registryImpl) Router() nodex.Router {
	return r.router
}

func (r *registryImpl) IT() nodex.Specialist {
	return r.it
}

func (r *registryImpl) Finance() nodex.Specialist {
	return r.finance
}

// NewRegistry builds the provider models from cfg and wires every agent.
func NewRegistry(ctx context.Context, cfg llmx.Config, deps Deps) (nodex.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	routerModel, err := cfg.BuilderFor(contractx.AgentTypeRouter).New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create router model: %v", contractx.ErrModelInvoke, err)
	}
	itModel, err := cfg.BuilderFor(contractx.AgentTypeIT).New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create it model: %v", contractx.ErrModelInvoke, err)
	}
	financeModel, err := cfg.BuilderFor(contractx.AgentTypeFinance).New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create finance model: %v", contractx.ErrModelInvoke, err)
	}

	if deps.CallTimeout == 0 {
		deps.CallTimeout = cfg.CallTimeout
	}
	return NewRegistryFromModels(ctx, Models{
		Router:  routerModel,
		IT:      itModel,
		Finance: financeModel,
	}, deps)
}

// NewRegistryFromModels wires agents around already constructed models.
func NewRegistryFromModels(ctx context.Context, models Models, deps Deps) (nodex.Registry, error) {
	if models.Router == nil || models.IT == nil || models.Finance == nil {
		return nil, fmt.Errorf("%w: a model is required for every agent", contractx.ErrValidation)
	}
	prompts := promptx.LoadPromptSet()

	routerPrompt, err := prompts.ForAgent(contractx.AgentTypeRouter)
	if err != nil {
		return nil, err
	}
	router, err := newRouter(ctx, models.Router, routerPrompt, deps.CallTimeout, deps.Callbacks)
	if err != nil {
		return nil, err
	}

	it, err := buildSpecialist(ctx, contractx.DomainIT, models.IT, prompts, deps)
	if err != nil {
		return nil, err
	}
	finance, err := buildSpecialist(ctx, contractx.DomainFinance, models.Finance, prompts, deps)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		router:  router,
		it:      it,
		finance: finance,
	}, nil
}

func buildSpecialist(
	ctx context.Context,
	domain contractx.Domain,
	chatModel einomodel.ToolCallingChatModel,
	prompts promptx.PromptSet,
	deps Deps,
) (*specialistImpl, error) {
	raw, err := prompts.ForAgent(domain.AgentType)
	if err != nil {
		return nil, err
	}

	var filenames []string
	var docs toolx.DocumentReader
	if deps.Docs != nil {
		filenames = deps.Docs.Filenames(domain.Tag)
		docs = deps.Docs
	}

	tools := toolx.BuildForDomain(domain, docs, deps.Search, toolx.WithCallbacks(deps.Callbacks...))
	return newSpecialist(
		ctx,
		domain,
		chatModel,
		promptx.RenderSpecialist(raw, filenames),
		tools,
		deps.Config,
		deps.CallTimeout,
		deps.Callbacks,
	)
}
