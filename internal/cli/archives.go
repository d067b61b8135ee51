package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/system"
	"github.com/unitexe/skopos/internal/ui"
)

// ArchivesCommand lists the image archives in a directory
type ArchivesCommand struct {
	ctx  *GlobalContext
	json bool
}

// NewArchivesCommand creates the archives command
func NewArchivesCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &ArchivesCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "archives [directory]",
		Short: "List container image archives with their size and sha256",
		Long: `Find valid container image archives in a directory (not recursive) and
print their size and sha256 checksum. Defaults to the mount root.`,
		Args: cobra.MaximumNArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().BoolVarP(&cmd.json, "json", "j", false, "JSON output")

	return cobraCmd
}

// Run executes the archives command
func (c *ArchivesCommand) Run(cmd *cobra.Command, args []string) error {
	var dir string
	if len(args) > 0 {
		var err error
		if dir, err = c.ctx.localPath(args[0]); err != nil {
			return err
		}
	}

	ops, err := c.ctx.Operations(system.CapabilityInspectArchive)
	if err != nil {
		return err
	}

	c.ctx.Logger.Debug("Scanning %s", dir)
	resp, err := ops.ListImageArchives(cmd.Context(), &api.ListImageArchivesRequest{Path: dir})
	if err != nil {
		return fmt.Errorf("failed to list image archives: %w", err)
	}

	if c.json {
		return ui.FprintJSON(c.ctx.Out, resp)
	}

	if len(resp.ImageArchives) == 0 {
		fmt.Fprintln(c.ctx.Out, "No image archives found")
		return nil
	}

	table := ui.NewTable("ARCHIVE", "SIZE", "SHA256")
	for _, a := range resp.ImageArchives {
		table.AddRow(a.FilePath, system.FormatSize(uint64(a.FileSizeBytes)), a.Sha256Checksum)
	}
	table.Fprint(c.ctx.Out)
	return nil
}
