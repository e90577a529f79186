package models

// AgentCard describes this agent to clients and to the classifier.
type AgentCard struct {
	Name        string  `json:"name"        mapstructure:"name"`
	Description string  `json:"description" mapstructure:"description"`
	URL         string  `json:"url"         mapstructure:"url"`
	Version     string  `json:"version"     mapstructure:"version"`
	Skills      []Skill `json:"skills"      mapstructure:"skills"`
}

// Skill is one capability advertised by the agent.
type Skill struct {
	ID          string   `json:"id"          mapstructure:"id"`
	Name        string   `json:"name"        mapstructure:"name"`
	Description string   `json:"description" mapstructure:"description"`
	Tags        []string `json:"tags"        mapstructure:"tags"`
	Examples    []string `json:"examples"    mapstructure:"examples"`
}

func (a AgentCard) SkillNames() []string {
	names := make([]string, 0, len(a.Skills))
	for _, skill := range a.Skills {
		names = append(names, skill.Name)
	}

	return names
}
