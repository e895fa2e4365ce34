// Package main is the museumrag command: the question page and API server
// plus administrative commands for the vector index.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/museumrag/internal/config"
	"github.com/kailas-cloud/museumrag/internal/version"
)

var (
	// configPath overrides the ENV-based config/<env>.yaml lookup.
	configPath string
	// apiKeyFlag takes precedence over openai.api_key and OPENAI_API_KEY.
	apiKeyFlag string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "museumrag",
	Short: "Question answering over the Dalí Museum corpus",
	Long: `museumrag answers questions about The Dalí Museum with retrieval-augmented
generation: the corpus is embedded into a vector index, the closest passages
are retrieved for each question, and a chat model answers from them only.

The OpenAI key is read from --openai-api-key, then openai.api_key in the
config file (which defaults to ${OPENAI_API_KEY}), then a .env file.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default config/<ENV>.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "openai-api-key", "", "OpenAI API key")
	rootCmd.AddCommand(serveCmd, seedCmd, resetCmd, askCmd, versionCmd)
}

// loadConfig resolves the configuration once per process. .env is loaded
// first so ${VAR} references in the YAML can see it; it never overrides
// variables already set in the environment.
func loadConfig() (config.Config, string, error) {
	_ = godotenv.Load()

	env := config.GetEnv()
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	cfg.OverrideAPIKey(apiKeyFlag)
	return cfg, env, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(version.String())
	},
}
