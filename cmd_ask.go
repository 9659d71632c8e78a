package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question, or chat interactively when no question is given",
	Example: `  helpdesk ask "How do I set up VPN access?"
  helpdesk ask --json "When is payroll processed?"
  helpdesk ask            # one question per line, history is kept`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if len(args) > 0 {
			res, err := a.orch.HandleMessage(ctx, nil, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printResult(out, res)
		}

		var history []*schema.Message
		scanner := bufio.NewScanner(cmd.InOrStdin())
		fmt.Fprint(out, color.CyanString("you> "))
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				fmt.Fprint(out, color.CyanString("you> "))
				continue
			}
			res, err := a.orch.HandleMessage(ctx, history, text)
			if err != nil {
				fmt.Fprintln(out, color.RedString("error: %v", err))
			} else {
				if err := printResult(out, res); err != nil {
					return err
				}
				history = append(history, schema.UserMessage(text), schema.AssistantMessage(res.Response, nil))
			}
			fmt.Fprint(out, color.CyanString("you> "))
		}
		fmt.Fprintln(out)
		return scanner.Err()
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the result as JSON")
}

func printResult(w io.Writer, res contractx.Result) error {
	if askJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	routeColor := color.New(color.FgGreen, color.Bold)
	if res.Route == contractx.RouteFinance {
		routeColor = color.New(color.FgYellow, color.Bold)
	}
	fmt.Fprintf(w, "%s %s\n", routeColor.Sprintf("[%s]", res.Route), res.Response)
	fmt.Fprintln(w, color.HiBlackString("run=%s llm_calls=%d", res.RunID, res.LLMCalls))
	return nil
}
