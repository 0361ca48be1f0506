package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"git.home.luguber.info/inful/nscale/internal/descriptor"
	"git.home.luguber.info/inful/nscale/internal/workspace"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	Project    string `arg:"" optional:"" type:"path" default:"." help:"Project directory containing the descriptor"`
	Descriptor string `type:"path" help:"Descriptor file (default <project>/system.json)"`
	Workspace  string `type:"path" help:"Directory holding workspace/<container-id> (default <project>)"`
}

// StatusRow is one container as reported by 'status'.
type StatusRow struct {
	ID         string
	Repository string
	Branch     string
	Commit     string
	State      string
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	descPath, wsRoot, err := ProjectPaths(cfg, s.Project, s.Descriptor, s.Workspace)
	if err != nil {
		return err
	}
	rows, orphans, err := CollectStatus(descPath, workspace.NewManager(wsRoot))
	if err != nil {
		return err
	}
	return PrintStatus(g.Out, rows, orphans)
}

// CollectStatus pairs every container with the state of its workspace entry.
// orphans lists workspace entries no container refers to.
func CollectStatus(descPath string, ws *workspace.Manager) ([]StatusRow, []string, error) {
	d, err := descriptor.Load(descPath)
	if err != nil {
		return nil, nil, err
	}

	known := make(map[string]bool, len(d.ContainerDefinitions))
	rows := make([]StatusRow, 0, len(d.ContainerDefinitions))
	for _, def := range d.ContainerDefinitions {
		row := StatusRow{
			ID:         def.ID,
			Repository: dash(def.Specific.RepositoryURL),
			Branch:     dash(def.Specific.Branch),
			Commit:     dash(def.Specific.Commit),
			State:      "-",
		}
		if def.HasRepository() && workspace.ValidateID(def.ID) == nil {
			known[def.ID] = true
			row.State = workspace.Probe(ws.PathFor(def.ID)).String()
		}
		rows = append(rows, row)
	}

	entries, err := ws.Entries()
	if err != nil {
		return nil, nil, err
	}
	var orphans []string
	for _, e := range entries {
		if !known[e] {
			orphans = append(orphans, e)
		}
	}
	return rows, orphans, nil
}

// PrintStatus renders rows as an aligned table.
func PrintStatus(w io.Writer, rows []StatusRow, orphans []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tREPOSITORY\tBRANCH\tCOMMIT\tWORKSPACE")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Repository, r.Branch, shortCommit(r.Commit), r.State)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, o := range orphans {
		_, _ = fmt.Fprintf(w, "orphaned workspace entry: %s\n", o)
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
