package commands

import (
	"fmt"

	"git.home.luguber.info/inful/nscale/internal/workspace"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Project    string   `arg:"" optional:"" type:"path" default:"." help:"Project directory"`
	IDs        []string `arg:"" optional:"" name:"ids" help:"Container ids to remove (default: all entries)"`
	Descriptor string   `type:"path" help:"Descriptor file (default <project>/system.json)"`
	Workspace  string   `type:"path" help:"Directory holding workspace/<container-id> (default <project>)"`
	Orphans    bool     `help:"Only remove entries no container in the descriptor refers to"`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	descPath, wsRoot, err := ProjectPaths(cfg, c.Project, c.Descriptor, c.Workspace)
	if err != nil {
		return err
	}
	ws := workspace.NewManager(wsRoot)

	ids := c.IDs
	if c.Orphans {
		_, orphans, err := CollectStatus(descPath, ws)
		if err != nil {
			return err
		}
		if len(orphans) == 0 {
			_, _ = fmt.Fprintln(g.Out, "No orphaned workspace entries")
			return nil
		}
		ids = orphans
	}

	removed, err := ws.Clean(ids...)
	for _, id := range removed {
		_, _ = fmt.Fprintf(g.Out, "Removed %s\n", ws.PathFor(id))
	}
	return err
}
