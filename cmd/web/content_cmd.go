package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kulhadcafe.in/site/internal/content"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Work with the site content file",
}

var contentCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a site content file (the embedded one when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			site *content.Site
			err  error
			name = "embedded content"
		)
		if len(args) == 1 {
			name = args[0]
			site, err = content.Load(name)
		} else {
			site, err = content.Default()
		}
		if err != nil {
			if errors.Is(err, content.ErrInvalid) {
				return fmt.Errorf("%s is invalid: %w", name, err)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d sections, %d nav items, %d franchise models, %d gallery images\n",
			name, len(content.SectionIDs), len(site.Nav), len(site.Franchise.Models), len(site.Gallery.Images))
		return nil
	},
}

func init() {
	contentCmd.AddCommand(contentCheckCmd)
	rootCmd.AddCommand(contentCmd)
}
