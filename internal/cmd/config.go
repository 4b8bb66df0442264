package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configServices bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved specification",
	Long: `Merges, substitutes, and normalizes the specification files, then
prints the result. Useful for checking what a multi-file project actually
resolves to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := loadProject()
		if err != nil {
			return err
		}
		if configServices {
			for _, name := range project.ServiceNames() {
				fmt.Println(name)
			}
			return nil
		}
		fmt.Print(project.MergedYAML)
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&configServices, "services", false, "print service names, one per line")

	rootCmd.AddCommand(configCmd)
}
