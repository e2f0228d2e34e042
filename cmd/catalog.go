package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the integration platform catalog",
	}
	catalogCmd.AddCommand(newIntegrationsCmd())
	catalogCmd.AddCommand(newCollectionsCmd())
	return catalogCmd
}

func newIntegrationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrations",
		Short: "List integrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			_, client, _, cleanup, err := initPlatform()
			if err != nil {
				return err
			}
			defer cleanup()

			integrations, err := client.ListIntegrations(ctx)
			if err != nil {
				return fmt.Errorf("failed to list integrations: %w", err)
			}

			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), integrations)
			}
			renderIntegrationsTable(cmd.OutOrStdout(), integrations)
			return nil
		},
	}
}

func newCollectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collections <integration-key>",
		Short: "List the data collections of an integration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			_, client, _, cleanup, err := initPlatform()
			if err != nil {
				return err
			}
			defer cleanup()

			collections, err := client.ListDataCollections(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list data collections: %w", err)
			}

			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), collections)
			}
			renderCollectionsTable(cmd.OutOrStdout(), args[0], collections)
			return nil
		},
	}
}
