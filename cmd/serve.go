package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blockdb/exception"
	"blockdb/jsonrpc"
	"blockdb/logx"
	"blockdb/monitoring"
	"blockdb/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the block store over JSON-RPC",
	Long: `Starts the JSON-RPC listener and the prometheus metrics endpoint.
Examples:
  blockdb --config ./config.yml serve
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		monitoring.InitMetrics()

		limiter := ratelimit.NewRateLimiter(&ratelimit.Config{
			MaxRequests:     cfg.RPC.RateLimitMaxRequests,
			WindowSize:      time.Duration(cfg.RPC.RateLimitWindowSeconds) * time.Second,
			CleanupInterval: 5 * time.Minute,
		})
		defer limiter.Stop()

		service := jsonrpc.NewService(s, limiter)

		exception.SafeGoWithPanic("jsonrpc listener", func() {
			logx.Info("RPC", "Serving JSON-RPC on ", cfg.RPC.ListenAddr)
			if err := http.ListenAndServe(cfg.RPC.ListenAddr, service.NewHandler()); err != nil {
				logx.Error("RPC", "JSON-RPC listener failed: ", err)
			}
		})

		exception.SafeGo("metrics listener", func() {
			mux := http.NewServeMux()
			monitoring.RegisterMetrics(mux)
			logx.Info("MONITORING", "Serving metrics on ", cfg.RPC.MetricsAddr)
			if err := http.ListenAndServe(cfg.RPC.MetricsAddr, mux); err != nil {
				logx.Error("MONITORING", "Metrics listener failed: ", err)
			}
		})

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logx.Info("CLI", "Shutting down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
