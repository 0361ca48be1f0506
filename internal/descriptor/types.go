package descriptor

// SystemDescriptor is the subset of a system definition the synchronizer reads.
type SystemDescriptor struct {
	Name                 string                `json:"name"`
	ID                   string                `json:"id"`
	ContainerDefinitions []ContainerDefinition `json:"containerDefinitions"`
}

// ContainerDefinition describes one deployable unit.
type ContainerDefinition struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Type     string   `json:"type,omitempty"`
	Specific Specific `json:"specific"`
}

// Specific carries the source location of a container.
type Specific struct {
	RepositoryURL string `json:"repositoryUrl,omitempty"`
	Branch        string `json:"branch,omitempty"`
	Commit        string `json:"commit,omitempty"`
}

// HasRepository reports whether the container is built from a git repository.
func (c ContainerDefinition) HasRepository() bool {
	return c.Specific.RepositoryURL != ""
}

// Container returns the first definition with id.
func (d *SystemDescriptor) Container(id string) (ContainerDefinition, bool) {
	for _, c := range d.ContainerDefinitions {
		if c.ID == id {
			return c, true
		}
	}
	return ContainerDefinition{}, false
}
