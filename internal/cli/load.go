package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/system"
	"github.com/unitexe/skopos/internal/ui"
)

// LoadCommand pushes an archive into the registry
type LoadCommand struct {
	ctx    *GlobalContext
	sha256 string
	json   bool
}

// NewLoadCommand creates the load command
func NewLoadCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &LoadCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "load <archive> <image-name> <image-tag>",
		Short: "Load an image archive into the local registry",
		Long: `Copy a container image archive into the configured registry as
<registry>/<image-name>:<image-tag>. With --sha256 the archive is verified
against the given checksum first.`,
		Args: cobra.MaximumNArgs(3),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVar(&cmd.sha256, "sha256", "", "Expected sha256 checksum of the archive")
	cobraCmd.Flags().BoolVarP(&cmd.json, "json", "j", false, "JSON output")

	return cobraCmd
}

// Run executes the load command
func (c *LoadCommand) Run(cmd *cobra.Command, args []string) error {
	archivePath, err := c.ctx.argOrPrompt(args, 0, "Archive path")
	if err != nil {
		return err
	}
	if archivePath, err = c.ctx.localPath(archivePath); err != nil {
		return err
	}
	name, err := c.ctx.argOrPrompt(args, 1, "Image name")
	if err != nil {
		return err
	}
	tag, err := c.ctx.argOrPrompt(args, 2, "Image tag")
	if err != nil {
		return err
	}

	ops, err := c.ctx.Operations(system.CapabilityCopyArchive)
	if err != nil {
		return err
	}

	c.ctx.Logger.Info("Loading %s as %s:%s...", archivePath, name, tag)
	resp, err := ops.LoadImageArchive(cmd.Context(), &api.LoadImageArchiveRequest{
		FilePath:               archivePath,
		ImageName:              name,
		ImageTag:               tag,
		ExpectedSha256Checksum: c.sha256,
	})
	if err != nil {
		return err
	}

	if c.json {
		if err := ui.FprintJSON(c.ctx.Out, resp); err != nil {
			return err
		}
	}
	if !resp.IsSuccess {
		return fmt.Errorf("load failed%s: %s", kindSuffix(resp.ErrorKind), resp.ErrorMessage)
	}

	c.ctx.Logger.Success("Loaded %s", resp.Reference)
	return nil
}
