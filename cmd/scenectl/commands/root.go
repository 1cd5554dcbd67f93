package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-scene/logging"
	"github.com/RyanBlaney/sonido-scene/scene/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Loaded in PersistentPreRunE
	pipelineConfig *config.PipelineConfig
)

var rootCmd = &cobra.Command{
	Use:   "scenectl",
	Short: "Audio scene classification",
	Long: `scenectl extracts a 44-value feature vector from audio and classifies
the acoustic scene with a pre-trained model or a rule-based scorer.

Configuration is read from --config (YAML, JSON or TOML) and SCENE_*
environment variables, layered over built-in defaults.

Examples:
  # Classify a recording with assets in ./assets
  scenectl analyze street.wav

  # Use the rule-based scorer and print JSON
  SCENE_STRATEGY=rules scenectl analyze --json street.wav

  # Print the effective configuration
  scenectl config show`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		pipelineConfig = cfg

		level := logging.ParseLevel(cfg.LogLevel)
		if verbose {
			level = logging.DebugLevel
		}
		// stdout is reserved for results
		logger := logging.NewDefaultLoggerWithOutput(os.Stderr, os.Stderr)
		logger.SetLevel(level)
		logging.SetGlobalLogger(logger)
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
}
