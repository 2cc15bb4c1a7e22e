package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/hindsight/pkg/config"
)

func writeSkill(t *testing.T, baseDir, dirName, frontmatterName, description string) string {
	t.Helper()
	skillDir := filepath.Join(baseDir, dirName)
	require.NoError(t, os.MkdirAll(skillDir, 0o755))

	content := `---
name: ` + frontmatterName + `
description: ` + description + `
---

# ` + frontmatterName + `

Instructions for this automation.
`
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644))
	return skillDir
}

func TestNewDiscovery(t *testing.T) {
	t.Run("with default dirs", func(t *testing.T) {
		discovery, err := NewDiscovery()
		require.NoError(t, err)
		assert.Len(t, discovery.skillDirs, 2)
	})

	t.Run("with custom dirs", func(t *testing.T) {
		customDirs := []string{"/tmp/skills1", "/tmp/skills2"}
		discovery, err := NewDiscovery(WithSkillDirs(customDirs...))
		require.NoError(t, err)
		assert.Equal(t, customDirs, discovery.skillDirs)
	})

	t.Run("from config appends extras", func(t *testing.T) {
		discovery, err := NewDiscoveryFromConfig(&config.SkillsConfig{Dirs: []string{"/tmp/extra"}})
		require.NoError(t, err)
		require.Len(t, discovery.skillDirs, 3)
		assert.Equal(t, "/tmp/extra", discovery.skillDirs[2])
	})
}

func TestDiscoverSkills(t *testing.T) {
	tmpDir := t.TempDir()
	skillDir := writeSkill(t, tmpDir, "api-optimizer", "api-optimizer", "Batches and caches repeated API calls")
	writeSkill(t, tmpDir, "test-guardian", "test-guardian", "Watches test runs and triages failures")

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	require.Len(t, skills, 2)

	optimizer, exists := skills["api-optimizer"]
	require.True(t, exists)
	assert.Equal(t, "api-optimizer", optimizer.Name)
	assert.Equal(t, "Batches and caches repeated API calls", optimizer.Description)
	assert.Equal(t, skillDir, optimizer.Directory)
	assert.Contains(t, optimizer.Content, "# api-optimizer")
	assert.NotContains(t, optimizer.Content, "description:", "frontmatter should be stripped from content")
}

func TestDiscoverSkillsFirstDirectoryWins(t *testing.T) {
	localDir := t.TempDir()
	globalDir := t.TempDir()
	writeSkill(t, localDir, "api-optimizer", "api-optimizer", "local version")
	writeSkill(t, globalDir, "api-optimizer", "api-optimizer", "global version")

	discovery, err := NewDiscovery(WithSkillDirs(localDir, globalDir))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "local version", skills["api-optimizer"].Description)
}

func TestDiscoverSkillsSkipsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "good-skill", "good-skill", "valid")

	// Directory without SKILL.md.
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "bare-dir"), 0o755))

	// SKILL.md without frontmatter.
	noMetaDir := filepath.Join(tmpDir, "no-meta")
	require.NoError(t, os.MkdirAll(noMetaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(noMetaDir, "SKILL.md"), []byte("# just markdown\n"), 0o644))

	// Plain file at the top level.
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "README.md"), []byte("readme"), 0o644))

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Contains(t, skills, "good-skill")
}

func TestDiscoverSkillsMissingDirectory(t *testing.T) {
	discovery, err := NewDiscovery(WithSkillDirs(filepath.Join(t.TempDir(), "does-not-exist")))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestExistingTargets(t *testing.T) {
	tmpDir := t.TempDir()

	// Valid skill whose frontmatter name differs from its directory.
	writeSkill(t, tmpDir, "optimizer-dir", "api-optimizer", "optimizes")

	// Bare directory still counts as an existing target by name.
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "deploy-sage"), 0o755))

	// Malformed SKILL.md keeps the directory name as a target.
	brokenDir := filepath.Join(tmpDir, "test-guardian")
	require.NoError(t, os.MkdirAll(brokenDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(brokenDir, "SKILL.md"), []byte("no frontmatter here"), 0o644))

	// Plain files do not count.
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notes.md"), []byte("notes"), 0o644))

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	targets := discovery.ExistingTargets(context.Background())

	assert.Contains(t, targets, "optimizer-dir", "directory name should count")
	assert.Contains(t, targets, "api-optimizer", "frontmatter name should count")
	assert.Contains(t, targets, "deploy-sage", "bare directory should count")
	assert.Contains(t, targets, "test-guardian", "directory with malformed SKILL.md should count")
	assert.NotContains(t, targets, "notes.md", "plain files should not count")
}

func TestExtractBodyContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "with frontmatter",
			content:  "---\nname: x\n---\n\n# Body\n",
			expected: "# Body\n",
		},
		{
			name:     "without frontmatter",
			content:  "# Just markdown\n",
			expected: "# Just markdown\n",
		},
		{
			name:     "unterminated frontmatter",
			content:  "---\nname: x\n",
			expected: "---\nname: x\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractBodyContent(tt.content))
		})
	}
}
