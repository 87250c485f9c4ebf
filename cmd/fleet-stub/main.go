package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fleet-e2e/device-dialog/internal/fleetstub"
	"github.com/fleet-e2e/device-dialog/internal/locators"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "fleet-stub",
	Short: "Stand-in fleet application for the device dialog E2E suite",
	Long: `fleet-stub serves a small fleet-tracking page exposing the same
Add/Edit Device dialog contract as the production application, so the
E2E suite can be run and debugged without a live environment.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the stub application",
	RunE:  runServe,
}

var locatorsCmd = &cobra.Command{
	Use:   "locators",
	Short: "Validate a locator override file and print the resolved table",
	RunE:  runLocators,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fleet-stub %s\n", rootCmd.Version)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8090", "Listen address")
	serveCmd.Flags().String("db", ":memory:", "SQLite DSN for the device store")
	serveCmd.Flags().String("user", "", "Login username (enables the login page)")
	serveCmd.Flags().String("password", "", "Login password")
	serveCmd.Flags().Bool("quiet", false, "Disable request logging")

	locatorsCmd.Flags().String("file", "", "Locator override file (YAML)")

	for _, name := range []string{"addr", "db", "user", "password", "quiet"} {
		_ = viper.BindPFlag(name, serveCmd.Flags().Lookup(name))
	}
	_ = viper.BindPFlag("locators_file", locatorsCmd.Flags().Lookup("file"))

	viper.SetEnvPrefix("FLEET_STUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(locatorsCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := fleetstub.OpenStore(ctx, viper.GetString("db"))
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := fleetstub.NewServer(fleetstub.Options{
		Store:    store,
		User:     viper.GetString("user"),
		Password: viper.GetString("password"),
		Quiet:    viper.GetBool("quiet"),
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              viper.GetString("addr"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[fleet-stub] listening on %s", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("[fleet-stub] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runLocators(cmd *cobra.Command, args []string) error {
	table, err := locators.Load(viper.GetString("locators_file"))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTRATEGY\tSELECTOR")
	for _, name := range table.Names() {
		l := table.MustGet(name)
		sel, err := l.Selector()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, l.Strategy, sel)
	}
	return w.Flush()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
