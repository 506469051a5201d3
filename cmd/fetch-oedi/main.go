package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"community-load/internal/data"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		manifestPath string
		baseURL      string
		destRoot     string
		ids          []string
		item         string
		dryRun       bool
		stamp        bool
	)
	cmd := &cobra.Command{
		Use:          "fetch-oedi",
		Short:        "Download missing ResStock/ComStock inputs listed in an OEDI manifest",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				manifestPath = data.GetDefaultManifestPath()
			}
			m, err := data.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			if destRoot != "" {
				m.DestRoot = destRoot
			}
			if len(ids) > 0 {
				if err := addIDs(m, item, ids); err != nil {
					return err
				}
			}
			if baseURL == "" {
				baseURL = m.BaseURL
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Syncing %d object(s) into %s\n", len(m.Downloads()), m.DestRoot)
			res, err := data.NewOEDIClient(baseURL).Sync(cmd.Context(), m, dryRun)
			if err != nil {
				return err
			}
			verb := "Downloaded"
			if dryRun {
				verb = "Would download"
			}
			fmt.Fprintf(out, "%s %d, skipped %d existing (%d bytes)\n", verb, res.Downloaded, res.Skipped, res.Bytes)

			if stamp && !dryRun {
				m.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
				if err := data.SaveManifest(m, manifestPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved manifest to %s\n", manifestPath)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&manifestPath, "manifest", "", "manifest JSON (default: $OEDI_MANIFEST or ./data/sources/oedi_manifest.json)")
	f.StringVar(&baseURL, "base-url", "", "override the manifest base_url")
	f.StringVar(&destRoot, "dest-root", "", "override the manifest dest_root")
	f.StringSliceVar(&ids, "building-id", nil, "building ids to add to --item (repeatable)")
	f.StringVar(&item, "item", "", "manifest item name that --building-id extends")
	f.BoolVar(&dryRun, "dry-run", false, "list what would be downloaded without writing")
	f.BoolVar(&stamp, "stamp", false, "write updated_at (and any added ids) back to the manifest")
	return cmd
}

// addIDs appends building ids to the named item, skipping ids it already lists.
func addIDs(m *data.Manifest, item string, ids []string) error {
	for i := range m.Items {
		if m.Items[i].Name != item {
			continue
		}
		seen := make(map[string]bool, len(m.Items[i].IDs))
		for _, id := range m.Items[i].IDs {
			seen[id] = true
		}
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id != "" && !seen[id] {
				m.Items[i].IDs = append(m.Items[i].IDs, id)
				seen[id] = true
			}
		}
		return nil
	}
	return fmt.Errorf("no manifest item named %q", item)
}
