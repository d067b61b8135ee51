package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/archive"
	"github.com/unitexe/skopos/internal/system"
	"github.com/unitexe/skopos/internal/ui"
)

// InspectCommand shows the metadata of an archive
type InspectCommand struct {
	ctx  *GlobalContext
	raw  bool
	json bool
}

// NewInspectCommand creates the inspect command
func NewInspectCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &InspectCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show the metadata of an image archive",
		Args:  cobra.MaximumNArgs(1),
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().BoolVar(&cmd.raw, "raw", false, "Print the inspect output unmodified")
	cobraCmd.Flags().BoolVarP(&cmd.json, "json", "j", false, "JSON output")

	return cobraCmd
}

// Run executes the inspect command
func (c *InspectCommand) Run(cmd *cobra.Command, args []string) error {
	archivePath, err := c.ctx.argOrPrompt(args, 0, "Archive path")
	if err != nil {
		return err
	}
	if archivePath, err = c.ctx.localPath(archivePath); err != nil {
		return err
	}

	ops, err := c.ctx.Operations(system.CapabilityInspectArchive)
	if err != nil {
		return err
	}

	resp, err := ops.InspectImageArchive(cmd.Context(), &api.InspectImageArchiveRequest{FilePath: archivePath})
	if err != nil {
		return err
	}

	if c.json {
		if err := ui.FprintJSON(c.ctx.Out, resp); err != nil {
			return err
		}
	}
	if !resp.IsSuccess {
		return fmt.Errorf("inspect failed%s: %s", kindSuffix(resp.ErrorKind), strings.TrimSpace(resp.Stderr))
	}
	if c.json {
		return nil
	}

	if c.raw {
		fmt.Fprint(c.ctx.Out, resp.Stdout)
		return nil
	}

	inspection, err := archive.ParseInspection(resp.Stdout)
	if err != nil {
		c.ctx.Logger.Warning("Could not summarize inspect output: %v", err)
		fmt.Fprint(c.ctx.Out, resp.Stdout)
		return nil
	}
	c.printSummary(inspection)
	return nil
}

func (c *InspectCommand) printSummary(in *archive.ImageInspection) {
	out := c.ctx.Out
	if in.Name != "" {
		fmt.Fprintf(out, "Name: %s\n", in.Name)
	}
	if len(in.RepoTags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(in.RepoTags, ", "))
	}
	if in.Digest != "" {
		fmt.Fprintf(out, "Digest: %s\n", in.Digest)
	}
	if in.Created != nil {
		fmt.Fprintf(out, "Created: %s\n", in.Created.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(out, "Platform: %s/%s\n", in.Os, in.Architecture)
	fmt.Fprintf(out, "Layers: %d\n", len(in.Layers))
	for _, l := range in.Layers {
		fmt.Fprintf(out, "  %s\n", l)
	}
}
