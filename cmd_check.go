package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/llm"
	configx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/config"
	openrouterx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/openrouter"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the model credentials for every agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configx.New[llmx.Config]("LLM")
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if strings.EqualFold(strings.TrimSpace(string(cfg.Provider)), string(llmx.ProviderGemini)) {
			for _, agent := range []contractx.AgentType{contractx.AgentTypeRouter, contractx.AgentTypeIT, contractx.AgentTypeFinance} {
				if _, err := cfg.BuilderFor(agent).New(cmd.Context()); err != nil {
					printStatus(out, false, fmt.Sprintf("%s: %v", agent, err))
					return err
				}
				printStatus(out, true, fmt.Sprintf("%s: gemini client ready", agent))
			}
			return nil
		}

		var failed bool
		probed := map[string]bool{}
		for _, agent := range []contractx.AgentType{contractx.AgentTypeRouter, contractx.AgentTypeIT, contractx.AgentTypeFinance} {
			orCfg := cfg.OpenRouterFor(agent)
			if probed[orCfg.Model] {
				continue
			}
			probed[orCfg.Model] = true

			res, err := openrouterx.Probe(cmd.Context(), *orCfg)
			if err != nil {
				failed = true
				printStatus(out, false, fmt.Sprintf("%s (%s): %v", agent, orCfg.Model, err))
				continue
			}
			printStatus(out, true, fmt.Sprintf("%s (%s) owned_by=%s in %s", agent, res.Model, res.OwnedBy, res.Latency.Round(time.Millisecond)))
		}
		if failed {
			return errors.New("one or more models failed the check")
		}
		return nil
	},
}

func printStatus(w io.Writer, ok bool, msg string) {
	if ok {
		fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), msg)
		return
	}
	fmt.Fprintf(w, "%s %s\n", color.RedString("✗"), msg)
}
