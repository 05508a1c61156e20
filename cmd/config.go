package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arcward/infobot/infobot"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify the runtime configuration stored in the database",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current runtime configuration as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, closeDB, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		state, _, err := infobot.LoadRuntimeConfig(ctx, db)
		if err != nil {
			return fmt.Errorf("error loading runtime config: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the runtime configuration keys accepted by 'config set'",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(infobot.RuntimeConfigKeys(), "\n"))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update a runtime configuration setting",
	Long: `Update a runtime configuration setting.

Running bots sharing a PostgreSQL database are notified of the change
immediately. Otherwise, they pick it up on their next refresh (see
runtime_config_ttl).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		update, err := infobot.ParseRuntimeConfigUpdate(args[0], args[1])
		if err != nil {
			return err
		}

		db, closeDB, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		if _, err = infobot.UpdateRuntimeConfig(ctx, db, update); err != nil {
			return fmt.Errorf("error updating runtime config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Updated %s\n", args[0])

		notifier, err := infobot.NewDBNotifier(
			cfg.DatabaseType,
			cfg.Database,
			db,
			cliLogger(cfg.LogLevel),
		)
		if err != nil {
			return err
		}
		if notifier.ReloadRuntimeConfig(ctx) {
			fmt.Fprintln(out, "Notified running bots to reload their configuration.")
		} else {
			fmt.Fprintf(
				out,
				"Running bots will pick up the change within %s.\n",
				cfg.RuntimeConfigTTL,
			)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configKeysCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
