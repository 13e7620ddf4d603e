package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajfletch/draftsmith/internal/pipeline"
	"github.com/ajfletch/draftsmith/internal/refine"
	"github.com/ajfletch/draftsmith/models"
)

func runCmd() *cobra.Command {
	var cfgPath string
	var format string
	var angle string
	var urls []string
	var save bool
	var title string

	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Run the research -> outline -> draft pipeline once",
		Long: `Ingests the given text files and URLs into a fresh working set, drives the
three-stage pipeline, and prints the draft. With --save the sources and the
draft snapshot are committed to the library.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				app.ingestor.FromText(filepath.Base(path), string(content))
			}
			for _, u := range urls {
				if _, err := app.ingestor.FromURL(ctx, u); err != nil {
					return err
				}
			}

			pipe := pipeline.New(app.provider, app.telemetry, newLogger("[PIPELINE] "))
			run := pipe.NewRun(models.ParseFormat(format), angle)
			if err := pipe.Execute(ctx, run, app.ingestor.Workspace().List()); err != nil {
				// Partial artifacts remain inspectable after a stage failure.
				if a := run.Analysis(); a != "" {
					fmt.Fprintln(os.Stderr, "--- research analysis (partial result) ---")
					fmt.Fprintln(os.Stderr, a)
				}
				return err
			}

			fmt.Println(run.Draft())

			if save {
				if title == "" {
					title = "Untitled draft"
				}
				app.lib.SaveSources(ctx, app.ingestor.Workspace().List())
				app.lib.SaveDraft(ctx, run.Snapshot(title))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&format, "format", "f", "blog", "output format: blog, thread, newsletter, outline-only")
	cmd.Flags().StringVarP(&angle, "angle", "a", "", "optional angle/topic annotation")
	cmd.Flags().StringSliceVarP(&urls, "url", "u", nil, "URL source (repeatable)")
	cmd.Flags().BoolVar(&save, "save", false, "save sources and draft to the library")
	cmd.Flags().StringVarP(&title, "title", "t", "", "title for the saved draft")
	return cmd
}

func refineCmd() *cobra.Command {
	var cfgPath string
	var draftPath string

	cmd := &cobra.Command{
		Use:   "refine -d draft.txt",
		Short: "Interactively refine a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfgPath)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(draftPath)
			if err != nil {
				return fmt.Errorf("reading %s: %w", draftPath, err)
			}

			sess := refine.NewSession(app.provider, string(content), app.telemetry, newLogger("[REFINE] "))
			fmt.Println("Enter edit requests, one per line (ctrl-d to finish):")
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				reply, rewrote := sess.Send(cmd.Context(), line)
				if rewrote {
					fmt.Println("[draft updated]")
				} else {
					fmt.Println(reply)
				}
			}
			fmt.Println(sess.Draft())
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&draftPath, "draft", "d", "", "draft file to refine")
	_ = cmd.MarkFlagRequired("draft")
	return cmd
}
