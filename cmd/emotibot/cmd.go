package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/internal"
)

var (
	log = internal.GetLogger()

	cfgFile     string
	showVersion bool
	dumpConfig  bool
	generateKey bool

	searchOpts searchOptions
)

var cmd = &cobra.Command{
	Use:   "emotibot",
	Short: "emotibot is an empathetic companion with a retrieval-augmented long-term memory",
	Run:   func(cmd *cobra.Command, args []string) { run() },
}

var ingestCmd = &cobra.Command{
	Use:     "ingest <file>...",
	Short:   "Chunk, embed and store plain-text files in the memory",
	Example: "emotibot ingest notes/coping.txt notes/habits.md",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppState(func(appState *appContext) error {
			return ingestFiles(cmd.Context(), appState.AppState, cmd.OutOrStdout(), args)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the memory and print the assembled context",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppState(func(appState *appContext) error {
			return search(
				cmd.Context(),
				appState.AppState,
				cmd.OutOrStdout(),
				joinArgs(args),
				searchOpts,
			)
		})
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppState(func(appState *appContext) error {
			return chat(cmd.Context(), appState.AppState, cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the record counts of the collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppState(func(appState *appContext) error {
			return printStats(cmd.Context(), appState.AppState, cmd.OutOrStdout())
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record of the collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAppState(func(appState *appContext) error {
			return clearCollection(cmd.Context(), appState.AppState, cmd.OutOrStdout())
		})
	},
}

var dumpJsonSchemaCmd = &cobra.Command{
	Use:     "json-schema",
	Short:   "Generates JSON Schema for emotibot's configuration file",
	Example: "emotibot json-schema > emotibot_config_schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.JSONSchema()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
		return err
	},
}

func init() {
	cmd.AddCommand(ingestCmd)
	cmd.AddCommand(searchCmd)
	cmd.AddCommand(chatCmd)
	cmd.AddCommand(statsCmd)
	cmd.AddCommand(clearCmd)
	cmd.AddCommand(dumpJsonSchemaCmd)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump config")
	cmd.PersistentFlags().
		BoolVarP(&generateKey, "generate-token", "g", false, "generate a new JWT token")

	searchCmd.Flags().IntVarP(&searchOpts.limit, "limit", "n", 0, "number of results (default memory.search_results)")
	searchCmd.Flags().
		IntVar(&searchOpts.maxLength, "max-length", 0, "maximum context length (default memory.max_context_length)")
	searchCmd.Flags().BoolVar(&searchOpts.mmr, "mmr", false, "rerank results for diversity")
	searchCmd.Flags().
		Float64Var(&searchOpts.mmrLambda, "mmr-lambda", 0.5, "relevance (1) versus diversity (0) for --mmr")
}

// Execute executes the root cobra command.
func Execute() {
	log.SetLevel(logrus.InfoLevel)

	err := cmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}
