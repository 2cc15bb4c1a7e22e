package skills

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/logger"
)

const skillFileName = "SKILL.md"

// Discovery handles skill discovery from configured directories
type Discovery struct {
	skillDirs []string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill directories
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs initializes with default skill directories
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			"./.hindsight/skills",                          // Repo-local (highest precedence)
			filepath.Join(homeDir, ".hindsight", "skills"), // User-global
		}
		return nil
	}
}

// WithExtraDirs appends additional skill directories after the current
// ones, keeping earlier directories at higher precedence.
func WithExtraDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = append(d.skillDirs, dirs...)
		return nil
	}
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(d); err != nil {
			return nil, err
		}
	} else {
		for _, opt := range opts {
			if err := opt(d); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// NewDiscoveryFromConfig builds a Discovery over the default directories
// plus any extras from configuration.
func NewDiscoveryFromConfig(cfg *config.SkillsConfig) (*Discovery, error) {
	opts := []Option{WithDefaultDirs()}
	if cfg != nil && len(cfg.Dirs) > 0 {
		opts = append(opts, WithExtraDirs(cfg.Dirs...))
	}
	return NewDiscovery(opts...)
}

// DiscoverSkills finds all available skills with valid metadata from
// the configured directories. Earlier directories win name collisions.
func (d *Discovery) DiscoverSkills(ctx context.Context) (map[string]*Skill, error) {
	skills := make(map[string]*Skill)

	for _, dir := range d.skillDirs {
		d.discoverSkillsFromDir(ctx, dir, skills)
	}

	return skills, nil
}

func (d *Discovery) discoverSkillsFromDir(ctx context.Context, dir string, skills map[string]*Skill) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		skillPath := filepath.Join(entryPath, skillFileName)
		skill, err := loadSkill(skillPath)
		if err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				logger.G(ctx).WithError(err).WithField("skill_path", skillPath).
					Debug("skipping skill with unreadable metadata")
			}
			continue
		}

		if _, exists := skills[skill.Name]; !exists {
			skill.Directory = entryPath
			skills[skill.Name] = skill
		}
	}
}

// ExistingTargets returns the set of names that count as already-built
// automations. Every immediate subdirectory of a skill directory counts
// by its directory name even when its SKILL.md is missing or malformed,
// and valid frontmatter contributes its declared name as well.
func (d *Discovery) ExistingTargets(ctx context.Context) map[string]struct{} {
	targets := make(map[string]struct{})

	for _, dir := range d.skillDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			entryPath := filepath.Join(dir, entry.Name())

			info, err := os.Stat(entryPath)
			if err != nil || !info.IsDir() {
				continue
			}

			targets[entry.Name()] = struct{}{}

			skill, err := loadSkill(filepath.Join(entryPath, skillFileName))
			if err == nil {
				targets[skill.Name] = struct{}{}
			}
		}
	}

	return targets
}

// loadSkill loads a single skill from its SKILL.md file
func loadSkill(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	if name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}
	if description == "" {
		return nil, errors.New("skill description is required in frontmatter")
	}

	return &Skill{
		Name:        name,
		Description: description,
		Content:     extractBodyContent(string(content)),
	}, nil
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}
