package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"turmob-efatura/lib/configutil"
	"turmob-efatura/lib/restyutil"
	"turmob-efatura/lib/scrapers/turmob"
	"turmob-efatura/lib/serviceutil"

	"github.com/spf13/cobra"
)

type Config struct {
	BaseUrl    string `json:"base_url"`
	VknTckn    string `json:"vkn_tckn"`
	Password   string `json:"password"`
	SessionDir string `json:"session_dir"`
	SessionId  string `json:"session_id"`
}

var debug *bool

var rootCmd = &cobra.Command{
	Use:   "turmob-cli",
	Short: "turmob-cli drives the TÜRMOB e-Fatura portal: login, recipients and invoice submission.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if *debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
			turmob.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/turmob"))
		}
	},
}

func init() {
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Dump every HTTP exchange to .dev/resty/turmob.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

// newRestoredClient builds a client from the configured session id
// without falling back to a fresh login.
func newRestoredClient(ctx context.Context, cfg Config) (*turmob.Client, error) {
	return turmob.NewClient(ctx, turmob.ClientOptions{
		BaseUrl:    cfg.BaseUrl,
		SessionDir: cfg.SessionDir,
		SessionId:  cfg.SessionId,
	})
}

// createClient restores the configured session when it is still alive,
// otherwise it logs in with the configured credentials.
func createClient(ctx context.Context, cfg Config) *turmob.Client {
	client, err := turmob.NewClient(ctx, turmob.ClientOptions{
		BaseUrl:    cfg.BaseUrl,
		SessionDir: cfg.SessionDir,
		SessionId:  cfg.SessionId,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize portal client", err)
	}

	if client.IsLoggedIn() {
		valid, err := client.ValidateSession(ctx)
		if err != nil {
			serviceutil.Fatal("failed to validate session", err)
		}
		if valid {
			slog.Info("restored saved session", "session_id", cfg.SessionId)
			return client
		}
		slog.Warn("saved session is no longer valid, logging in again")
	}

	ok, err := client.Login(ctx, cfg.VknTckn, cfg.Password)
	if err != nil {
		serviceutil.Fatal("failed to login", err)
	}
	if !ok {
		serviceutil.Fatal("login rejected", fmt.Errorf("check vkn_tckn and password in config.json5"))
	}
	slog.Info("logged in", "vkn_tckn", cfg.VknTckn)
	return client
}
