package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/openpaas/groupd/internal/logging"
	"github.com/openpaas/groupd/internal/server"
)

func newServerCmd() *cobra.Command {
	var configFilename string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the group membership server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options := defaultServerOptions()
			if err := applyConfigFile(configFilename, &options); err != nil {
				return err
			}
			if err := applyServerFlags(cmd, &options); err != nil {
				return err
			}

			srv, err := server.New(options)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return runServer(cmd.Context(), srv)
		},
	}

	cmd.Flags().StringVarP(&configFilename, "config-file", "f", "", "Server configuration file")
	cmd.Flags().String("http-addr", "", "HTTP API listen address")
	cmd.Flags().String("metrics-addr", "", "Metrics listen address")
	cmd.Flags().String("db-file", "", "Path to SQLite 3 database")
	cmd.Flags().String("db-host", "", "Database host")
	cmd.Flags().Int("db-port", 0, "Database port")
	cmd.Flags().String("db-name", "", "Database name")
	cmd.Flags().String("db-username", "", "Database username")
	cmd.Flags().String("db-password", "", "Database password (secret)")
	cmd.Flags().String("db-parameters", "", "Database additional connection parameters")
	cmd.Flags().String("log-file", "", "Also write logs to this file")

	return cmd
}

func defaultServerOptions() server.Options {
	return server.Options{
		Addr: server.ListenerOptions{
			HTTP:    ":8080",
			Metrics: ":9090",
		},
		DBFile: "groupd.db",
	}
}

func applyConfigFile(filename string, options *server.Options) error {
	if filename == "" {
		return nil
	}

	contents, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(contents, options); err != nil {
		return fmt.Errorf("config file %v: %w", filename, err)
	}
	return nil
}

// applyServerFlags overrides config file values with any flags set on the
// command line.
func applyServerFlags(cmd *cobra.Command, options *server.Options) error {
	var err error
	setString := func(name string, target *string) {
		if err != nil || !cmd.Flags().Changed(name) {
			return
		}
		*target, err = cmd.Flags().GetString(name)
	}

	setString("http-addr", &options.Addr.HTTP)
	setString("metrics-addr", &options.Addr.Metrics)
	setString("db-file", &options.DBFile)
	setString("db-host", &options.DBHost)
	setString("db-name", &options.DBName)
	setString("db-username", &options.DBUsername)
	setString("db-password", &options.DBPassword)
	setString("db-parameters", &options.DBParameters)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("db-port") {
		if options.DBPort, err = cmd.Flags().GetInt("db-port"); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("log-file") {
		filename, err := cmd.Flags().GetString("log-file")
		if err != nil {
			return err
		}
		logging.UseFileLogger(filename)
	}
	return nil
}

// shim for testing
var runServer = func(ctx context.Context, srv *server.Server) error {
	return srv.Run(ctx)
}
