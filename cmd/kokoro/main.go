package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/kokoro/ai/embedding"
	"github.com/hrygo/kokoro/ai/llm"
	"github.com/hrygo/kokoro/companion"
	"github.com/hrygo/kokoro/companion/consolidate"
	"github.com/hrygo/kokoro/companion/history"
	"github.com/hrygo/kokoro/companion/learning"
	"github.com/hrygo/kokoro/companion/memory"
	"github.com/hrygo/kokoro/companion/sentiment"
	"github.com/hrygo/kokoro/internal/profile"
	"github.com/hrygo/kokoro/internal/version"
	"github.com/hrygo/kokoro/plugin/chat/telegram"
	"github.com/hrygo/kokoro/plugin/reengage"
	"github.com/hrygo/kokoro/server"
	"github.com/hrygo/kokoro/store"
	"github.com/hrygo/kokoro/store/db"
)

var rootCmd = &cobra.Command{
	Use:     "kokoro",
	Short:   "An AI companion service with affective state, trial lifecycle, and long-term memory.",
	Version: version.String(),
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Systemd deployments configure through the unit environment.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			os.Exit(1)
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		defer storeInstance.Close()
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			os.Exit(1)
		}

		llmService, err := llm.NewService(&llm.Config{
			Provider: instanceProfile.LLMProvider,
			Model:    instanceProfile.LLMModel,
			APIKey:   instanceProfile.LLMAPIKey,
			BaseURL:  instanceProfile.LLMBaseURL,
			Timeout:  instanceProfile.LLMTimeout,
		})
		if err != nil {
			slog.Error("failed to create llm service", "error", err)
			os.Exit(1)
		}
		embeddingService, err := embedding.NewService(&embedding.Config{
			Provider:   instanceProfile.EmbeddingProvider,
			Model:      instanceProfile.EmbeddingModel,
			APIKey:     instanceProfile.EmbeddingAPIKey,
			BaseURL:    instanceProfile.EmbeddingBaseURL,
			Dimensions: instanceProfile.EmbeddingDimensions,
		})
		if err != nil {
			slog.Error("failed to create embedding service", "error", err)
			os.Exit(1)
		}

		httpServer := server.NewServer(instanceProfile)

		historyService := history.NewService(storeInstance)
		memoryAccessor := memory.NewAccessor(storeInstance, embeddingService, llmService)
		learner := learning.NewLearner(storeInstance, llmService)
		engine := companion.NewEngine(
			storeInstance,
			historyService,
			memoryAccessor,
			learner,
			llmService,
			sentiment.NewScorer(),
			httpServer.Collector,
			companion.Config{
				TrialDuration:   time.Duration(instanceProfile.TrialMinutes) * time.Minute,
				HistoryLimit:    instanceProfile.HistoryLimit,
				MemoryK:         instanceProfile.MemoryK,
				ExemplarK:       instanceProfile.ExemplarK,
				DefaultLanguage: instanceProfile.DefaultLanguage,
			},
		)

		consolidator := consolidate.NewWorker(
			storeInstance,
			historyService,
			memoryAccessor,
			llmService,
			time.Duration(instanceProfile.ConsolidationGapMinutes)*time.Minute,
			time.Duration(instanceProfile.ConsolidationIntervalSec)*time.Second,
			instanceProfile.ConsolidationMinTurns,
		)

		if err := httpServer.Start(ctx); err != nil {
			slog.Error("failed to start http server", "error", err)
			os.Exit(1)
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error { return ignoreCanceled(consolidator.Run(groupCtx)) })

		if instanceProfile.TelegramBotToken != "" {
			bot, err := telegram.NewBot(telegram.Config{
				BotToken:             instanceProfile.TelegramBotToken,
				PaymentProviderToken: instanceProfile.PaymentProviderToken,
			}, engine)
			if err != nil {
				slog.Error("failed to create telegram bot", "error", err)
				os.Exit(1)
			}
			if err := bot.WaitReady(10 * time.Second); err != nil {
				slog.Error("telegram bot not ready", "error", err)
				os.Exit(1)
			}
			reengager := reengage.NewWorker(
				storeInstance,
				bot.SendText,
				time.Duration(instanceProfile.ReengageIntervalSec)*time.Second,
			)
			group.Go(func() error { return ignoreCanceled(bot.Run(groupCtx)) })
			group.Go(func() error { return ignoreCanceled(reengager.Run(groupCtx)) })
		} else {
			slog.Warn("no telegram bot token configured, chat frontend disabled")
		}

		printGreetings(instanceProfile)

		// Trigger graceful shutdown on SIGINT or SIGTERM.
		c := make(chan os.Signal, 1)
		signal.Notify(c, terminationSignals...)
		go func() {
			<-c
			slog.Info("shutting down")
			httpServer.Shutdown(ctx)
			cancel()
		}()

		if err := group.Wait(); err != nil {
			slog.Error("worker exited with error", "error", err)
		}
	},
}

func ignoreCanceled(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "postgres")
	viper.SetDefault("port", 28090)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "postgres", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("kokoro")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("Kokoro %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		fmt.Fprintf(os.Stderr, "Build: %s\n", version.StringFull())
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	fmt.Printf("Health endpoint: http://localhost:%d/healthz\n", profile.Port)
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
