package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"analyst-ai/chat"
	"analyst-ai/utils"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set <api-key>",
	Short: "Store the API key used for the model service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.app.SetCredential(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.app.ClearCredential(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key removed.")
		return nil
	},
}

var prefixCmd = &cobra.Command{
	Use:   "prefix",
	Short: "Manage saved prompt prefixes",
}

var prefixListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved prompt prefixes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		active, hasActive := env.app.ActivePrefix()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tNAME\tPREVIEW")
		for _, p := range env.app.Prefixes() {
			marker := ""
			if hasActive && p.ID == active.ID {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, p.ID, p.Name, oneLine(chat.Preview(p.Content)))
		}
		return w.Flush()
	},
}

var prefixExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write saved prefixes to a .json or .yaml file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		prefixes := env.app.Prefixes()
		if err := utils.ExportPrefixes(prefixes, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d prefixes to %s\n", len(prefixes), args[0])
		return nil
	},
}

var prefixImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add the prefixes from a .json or .yaml file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := utils.ImportPrefixes(env.app, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d prefixes\n", n)
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the stored settings (values are masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		settings, err := env.database.ListSettings()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tUPDATED")
		for _, s := range settings {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Key, utils.FormatFileSize(int64(len(s.Value))), s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "config-path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath
		if path == "" {
			path = utils.GetConfigPath()
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	},
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyClearCmd)
	prefixCmd.AddCommand(prefixListCmd, prefixExportCmd, prefixImportCmd)
	rootCmd.AddCommand(keyCmd, prefixCmd, settingsCmd, configPathCmd)
}
