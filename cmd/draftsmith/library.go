package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajfletch/draftsmith/internal/library"
)

func libraryCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect and manage the saved library",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved sources, drafts and notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfgPath)
			if err != nil {
				return err
			}
			lib := app.lib.Load(cmd.Context())
			fmt.Printf("sources (%d):\n", len(lib.Sources))
			for _, s := range lib.Sources {
				fmt.Printf("  %s  [%s]  %s\n", s.ID, s.Type, s.Title)
			}
			fmt.Printf("drafts (%d):\n", len(lib.Drafts))
			for _, d := range lib.Drafts {
				fmt.Printf("  %s  [%s]  %s\n", d.ID, d.Format, d.Title)
			}
			fmt.Printf("notes (%d):\n", len(lib.Notes))
			for _, n := range lib.Notes {
				fmt.Printf("  %s  %s\n", n.ID, n.Title)
			}
			return nil
		},
	}

	var topK int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfgPath)
			if err != nil {
				return err
			}
			idx, err := library.BuildIndex(app.lib.Load(cmd.Context()))
			if err != nil {
				return err
			}
			defer idx.Close()
			hits, err := idx.Search(args[0], topK)
			if err != nil {
				return err
			}
			for _, h := range hits {
				fmt.Printf("%.2f  [%s]  %s  %s\n      %s\n", h.Score, h.Category, h.ID, h.Title, h.Snippet)
			}
			return nil
		},
	}
	search.Flags().IntVarP(&topK, "top", "k", 10, "maximum number of hits")

	del := &cobra.Command{
		Use:   "delete <category> <id>",
		Short: "Delete one record from sources, drafts or notes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfgPath)
			if err != nil {
				return err
			}
			if _, err := app.lib.Remove(cmd.Context(), library.Category(args[0]), args[1]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}

	cmd.AddCommand(list, search, del)
	return cmd
}
