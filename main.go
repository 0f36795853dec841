package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"analyst-ai/chat"
	"analyst-ai/db"
	"analyst-ai/gui"
	"analyst-ai/llm"
	"analyst-ai/ui"
	"analyst-ai/utils"
)

var (
	version = "0.1.0"

	configPath string
	provider   string
	verbose    bool
)

// rootCmd starts the interactive chat when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "analyst-ai",
	Short: "Chat with an AI document analyst from the terminal",
	Long: `Analyst AI reviews PDF, DOCX, TXT and HTML documents with a hosted model.

Attach documents, pick a saved prompt prefix and ask questions; replies
stream into the terminal as they are generated.

Quick Start:
  analyst-ai key set <api-key>    # store your Gemini API key
  analyst-ai                      # start chatting
  analyst-ai gui                  # open the desktop window
  analyst-ai prefix list          # show saved prompt prefixes`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()

		shell := ui.NewShell(env.app, env.logger, os.Stdout)
		env.logger.Info("Application started")
		err = shell.Run(ctx)
		env.logger.Info("Application stopped")
		return err
	},
}

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the desktop chat window",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		window := gui.NewWindow(app.NewWithID("analyst-ai"), env.app, env.logger, env.config.UI)
		env.logger.Info("Window opened")
		window.Run()

		// Remember the window size for the next start
		size := window.Size()
		if size.Width > 0 && size.Height > 0 {
			env.config.UI.WindowWidth = int(size.Width)
			env.config.UI.WindowHeight = int(size.Height)
			if err := utils.SaveConfig(env.configPath, env.config); err != nil {
				env.logger.Error("Failed to save window size: %v", err)
			}
		}
		env.logger.Info("Window closed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(guiCmd)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "Model service to use (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.SetVersionTemplate(`{{printf "Analyst AI v%s\n" .Version}}`)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// environment holds everything a command needs
type environment struct {
	config     *utils.Config
	configPath string
	logger     *utils.Logger
	database   *db.DB
	app        *chat.App
}

func (e *environment) Close() {
	if e.database != nil {
		if err := e.database.Close(); err != nil {
			e.logger.Error("Failed to close database: %v", err)
		}
	}
	e.logger.Close()
}

func bootstrap() (*environment, error) {
	config, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if provider != "" {
		config.Provider = provider
	}

	logPath := config.Log.Path
	if logPath == "" {
		logPath = utils.GetLogPath()
	}
	logger, err := utils.NewLogger(logPath, config.Log.Level, config.Log.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetVerbose(verbose)
	logger.Info("Starting Analyst AI v%s", version)

	env := &environment{config: config, configPath: path, logger: logger}

	database, err := db.New(config.Data.DBPath)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	env.database = database
	logger.Info("Database initialized: %s", config.Data.DBPath)

	service, session, err := newService(config)
	if err != nil {
		env.Close()
		return nil, err
	}

	app, err := chat.New(chat.Options{
		Store:             database,
		Service:           service,
		Session:           session,
		AllowedExtensions: config.Files.AllowedExtensions,
		MaxFileSize:       config.MaxFileSizeBytes(),
		Logger:            logger,
	})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to initialize chat: %w", err)
	}
	env.app = app

	return env, nil
}

func loadConfig() (*utils.Config, string, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = utils.EnsureDefaultConfig()
		if err != nil {
			return nil, "", fmt.Errorf("failed to create default config: %w", err)
		}
	}

	config, err := utils.LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	return config, path, nil
}

// newService builds the model service selected in config
func newService(config *utils.Config) (llm.Service, llm.SessionConfig, error) {
	name, pc, err := config.ActiveProvider()
	if err != nil {
		return nil, llm.SessionConfig{}, err
	}

	session := llm.SessionConfig{
		Model:             pc.Model,
		Temperature:       pc.Temperature,
		MaxTokens:         pc.MaxTokens,
		SafetySettings:    llm.DefaultSafetySettings(),
		SystemInstruction: chat.SystemInstruction,
	}
	llmConfig := llm.Config{
		ProviderName: pc.DisplayName,
		BaseURL:      pc.BaseURL,
		Timeout:      pc.Timeout,
	}

	switch name {
	case "gemini":
		return llm.NewGeminiService(llmConfig), session, nil
	case "openai":
		return llm.NewOpenAIService(llmConfig), session, nil
	default:
		return nil, llm.SessionConfig{}, fmt.Errorf("unsupported provider: %s", name)
	}
}
