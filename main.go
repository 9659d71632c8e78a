package main

import (
	"os"

	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/config"
	logx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/logger"
	_ "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/logger/autoload"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "helpdesk",
	Short: "Route employee questions to the IT or Finance specialist",
	Long: `helpdesk classifies a question as IT or Finance, hands it to the matching
specialist agent and prints the answer. Specialists can read internal
documents from DOCS_DIR (or S3) and search the public web.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile == "" {
			return nil
		}
		configx.SetEnvFile(envFile)
		cfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		logx.Init(*cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file (default ./.env when present)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
