package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage gesture templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored gesture templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		templates, err := st.Templates().List()
		if err != nil {
			return fmt.Errorf("list templates: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTOLERANCE\tBUILTIN\tLANDMARKS")
		for _, t := range templates {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%v\t%d\n", t.ID, t.Name, t.Tolerance, t.Builtin, len(t.Landmarks))
		}
		return w.Flush()
	},
}

var templatesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store the built-in templates if none exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := app.SeedTemplates(st.Templates())
		if err != nil {
			return fmt.Errorf("seed templates: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d templates\n", n)
		return nil
	},
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a gesture template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Templates().Delete(args[0]); err != nil {
			return fmt.Errorf("delete template %s: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesSeedCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)
}
