package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/bsscheck/internal/search"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the application and database details of the environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient(cmd.Context(), nil)
		if err != nil {
			return err
		}
		info, err := client.EnvironmentInfo(cmd.Context(), config.API.InfoPath)
		if err != nil {
			return err
		}
		fmt.Printf("Environment: %s (%s)\n\n", config.App.Environment, config.App.BaseURL)
		for _, section := range []string{search.ApplicationDetails, search.DatabaseDetails} {
			fmt.Printf("%s\n%s\n\n", section, info.Summary(section))
		}
		return nil
	},
}
