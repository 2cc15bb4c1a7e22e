// Package skills enumerates the automations that already exist beside
// hindsight. A skill is a directory containing a SKILL.md file with
// YAML frontmatter; the analyzer consults the discovered names so it
// never recommends building something that is already built.
package skills

// Skill represents a discovered skill with its metadata
type Skill struct {
	Name        string // Unique name from frontmatter
	Description string // Brief description of what the skill automates
	Directory   string // Full path to the skill directory
	Content     string // Full content of SKILL.md (body, not frontmatter)
}
