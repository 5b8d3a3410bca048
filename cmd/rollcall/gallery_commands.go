package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"rollcall/internal/config"
	"rollcall/internal/recognition"
	"rollcall/internal/vision"
)

func newGalleryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Inspect and prepare the reference gallery",
	}
	cmd.AddCommand(newGalleryListCommand(ctx))
	cmd.AddCommand(newGalleryBuildCommand(ctx))
	return cmd
}

func newGalleryListCommand(ctx *commandContext) *cobra.Command {
	var declared, jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loaded identities, or the manifest's declared ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !declared {
				if client, err := ctx.dialClient(); err == nil {
					defer client.Close()
					resp, err := client.Gallery()
					if err != nil {
						return fmt.Errorf("gallery: %w", err)
					}
					if jsonOut {
						return writeJSON(cmd, resp.Gallery)
					}
					rows := make([][]string, 0, len(resp.Gallery.Identities))
					for i, id := range resp.Gallery.Identities {
						rows = append(rows, []string{strconv.Itoa(i + 1), id})
					}
					fmt.Fprintln(out, renderTable([]string{"#", "Identity"}, rows, []columnAlignment{alignRight, alignLeft}))
					fmt.Fprintln(out, galleryStatusLine(resp.Gallery, shouldColorize(out)))
					return nil
				}
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manifest, err := recognition.LoadManifest(cfg.Gallery.Manifest)
			if err != nil {
				return err
			}
			entries := describeManifest(manifest)
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No identities declared in %s\n", cfg.Gallery.Manifest)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for i, e := range entries {
				rows = append(rows, []string{strconv.Itoa(i + 1), e.ID, e.Source, yesNo(e.Usable)})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Identity", "Reference", "Usable"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&declared, "declared", false, "List the manifest instead of querying rollcall run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

type manifestEntryView struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Usable bool   `json:"usable"`
}

func describeManifest(m *recognition.Manifest) []manifestEntryView {
	views := make([]manifestEntryView, 0, len(m.Identities))
	for _, entry := range m.Identities {
		view := manifestEntryView{ID: recognition.NormalizeLabel(entry.ID)}
		switch {
		case len(entry.Embedding) > 0:
			view.Source = fmt.Sprintf("embedding (%d dims)", len(entry.Embedding))
			view.Usable = true
		case len(entry.Images) > 0:
			paths := m.ImagePaths(entry)
			found := 0
			for _, p := range paths {
				if _, err := os.Stat(p); err == nil {
					found++
				}
			}
			view.Source = fmt.Sprintf("%d/%d images", found, len(paths))
			view.Usable = found > 0
		default:
			view.Source = "none"
		}
		views = append(views, view)
	}
	return views
}

func newGalleryBuildCommand(ctx *commandContext) *cobra.Command {
	var output, strategyFlag string
	var force bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Precompute reference embeddings into the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			strategyName := cfg.Gallery.Strategy
			if strings.TrimSpace(strategyFlag) != "" {
				strategyName = strategyFlag
			}
			strategy, err := recognition.ParseStrategy(strategyName)
			if err != nil {
				return err
			}
			manifest, err := recognition.LoadManifest(cfg.Gallery.Manifest)
			if err != nil {
				return err
			}

			model, err := vision.LoadModel(cfg.Camera.CascadePath, cfg.Camera.ModelPath)
			if err != nil {
				return fmt.Errorf("load vision models: %w", err)
			}
			defer model.Close()
			embedder := vision.NewEmbedder(model, cfg.Gallery.Augmentations)

			bar := progressbar.NewOptions(len(manifest.Identities),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Embedding references"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetItsString("identities"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)
			missing := manifest.Precompute(cmd.Context(), strategy, embedder, force, func(string, error) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()

			target, err := buildTarget(cfg, output)
			if err != nil {
				return err
			}
			if err := manifest.Save(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nWrote %d/%d reference embeddings (%s) to %s\n",
				len(manifest.Identities)-len(missing), len(manifest.Identities), strategy, target)
			for _, m := range missing {
				fmt.Fprintf(out, "  - %s: %s\n", m.ID, m.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the built manifest here instead of in place")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "Embedding strategy (single or averaged)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-embed identities that already carry an embedding")
	return cmd
}

func buildTarget(cfg *config.Config, output string) (string, error) {
	if strings.TrimSpace(output) == "" {
		return cfg.Gallery.Manifest, nil
	}
	expanded, err := config.ExpandPath(output)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	return expanded, nil
}
