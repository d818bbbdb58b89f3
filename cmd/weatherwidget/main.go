package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Nazarious-ucu/weather-widget/internal/app"
	"github.com/Nazarious-ucu/weather-widget/internal/config"
	"github.com/Nazarious-ucu/weather-widget/internal/services/geo"
	metricsSvc "github.com/Nazarious-ucu/weather-widget/internal/services/metrics"
	"github.com/Nazarious-ucu/weather-widget/internal/widget"
	"github.com/Nazarious-ucu/weather-widget/pkg/logger"
)

const serviceName = "weather_widget"

var (
	envFile    string
	jsonOutput bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "weatherwidget",
		Short:        "Current weather widget",
		Long:         "Serve the weather widget over HTTP or look up the current weather from the terminal",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if err := godotenv.Load(envFile); err != nil {
				log.Printf("No .env file found: %v", err)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&envFile, "env", "e", ".env", "dotenv file to load")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print the widget view as JSON")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(locateCmd())

	return rootCmd
}

func setup() (*app.App, zerolog.Logger, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.NewLogger(cfg.LogsPath, serviceName, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to create logger: %w", err)
	}

	return app.New(*cfg, l, metricsSvc.NewMetrics(serviceName)), l, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the widget HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, l, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := application.Start(ctx); err != nil {
				l.Error().Err(err).Msg("application failed to run")
				return err
			}
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <city>",
		Short: "Show the current weather for a city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := setup()
			if err != nil {
				return err
			}
			c := application.Init()
			defer func() { _ = application.Shutdown(c) }()

			w := application.NewWidget(c.Weather)
			w.SetSearchText(args[0])
			searchErr := w.Search(cmd.Context(), args[0])

			if err := printView(cmd, w); err != nil {
				return err
			}
			return searchErr
		},
	}
}

func locateCmd() *cobra.Command {
	var lat, lon string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Show the current weather for a position",
		Long:  "Show the current weather for --lat/--lon, or for the position of this machine's public IP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, _, err := setup()
			if err != nil {
				return err
			}
			c := application.Init()
			defer func() { _ = application.Shutdown(c) }()

			var locator widget.Locator
			switch {
			case cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon"):
				pos, err := geo.ParseCoordinates(lat, lon)
				if err != nil {
					return err
				}
				locator = geo.Fixed(pos)
			default:
				locator = application.NewIPLocator(c.HTTPClient)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			w := application.NewWidget(c.Weather)
			mountErr := w.Mount(ctx, locator)

			if err := printView(cmd, w); err != nil {
				return err
			}
			return mountErr
		},
	}

	cmd.Flags().StringVar(&lat, "lat", "", "latitude in decimal degrees")
	cmd.Flags().StringVar(&lon, "lon", "", "longitude in decimal degrees")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "position and weather lookup timeout")

	return cmd
}

func printView(cmd *cobra.Command, w *widget.Widget) error {
	view := w.View()
	if jsonOutput {
		output, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
		return err
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), view.String())
	return err
}
