package sources

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/logger"
	"github.com/jingkaihe/hindsight/pkg/patterns"
)

const defaultDocMaxFileBytes = 2 * 1024 * 1024

// A domain needs at least this many tasks before it becomes a signal;
// a single stray mention is not a pattern.
const minDomainTasks = 2

// docFilePatterns match planning documents by filename, case-insensitive
// on the significant word. Configured dirs may themselves contain glob
// metacharacters such as ** for recursive scanning.
var docFilePatterns = []string{
	"*[Pp][Rr][Dd]*.md",
	"*[Tt][Oo][Dd][Oo]*.md",
	"*[Tt][Aa][Ss][Kk]*.md",
	"*[Rr][Ee][Qq][Uu][Ii][Rr][Ee][Mm][Ee][Nn][Tt]*.md",
	"*[Rr][Oo][Aa][Dd][Mm][Aa][Pp]*.md",
}

var (
	checkboxTaskRe = regexp.MustCompile(`(?m)^[-*]\s*\[[ xX]\]\s*(.+)$`)
	numberedTaskRe = regexp.MustCompile(`(?m)^\d+\.\s+(.+)$`)
	bulletTaskRe   = regexp.MustCompile(`(?m)^[-*]\s+([^[].+)$`)
	headerTaskRe   = regexp.MustCompile(`(?m)^#{3,4}\s+(.+)$`)
)

// Numbered and bullet lines shorter than this are treated as section
// labels rather than tasks.
const minListTaskLength = 15

var headerTaskKeywords = []string{"implement", "create", "build", "add", "fix"}

// domainKeywords classify a task by substring match on its lowercased
// text. A task can land in several domains; tasks matching none fall
// into "general".
var domainKeywords = map[string][]string{
	"api_call":        {"api", "endpoint", "rest", "graphql", "request", "response", "http", "webhook"},
	"testing":         {"test", "testing", "unit test", "integration test", "e2e", "coverage", "assert"},
	"deployment":      {"deploy", "docker", "kubernetes", "k8s", "ci/cd", "pipeline", "container", "helm"},
	"documentation":   {"readme", "docs", "documentation", "wiki", "guide", "tutorial", "comment"},
	"database_query":  {"database", "sql", "query", "migration", "schema", "postgres", "mongo", "orm"},
	"frontend":        {"ui", "frontend", "react", "vue", "angular", "component", "css", "html"},
	"backend":         {"backend", "server", "api", "service", "microservice", "handler"},
	"performance":     {"performance", "optimize", "cache", "speed", "latency", "throughput", "profiling"},
	"security":        {"security", "auth", "authentication", "authorization", "encrypt", "permission", "jwt"},
	"data_processing": {"data", "etl", "transform", "parse", "csv", "json", "xml", "process"},
}

// DocsSource derives signals from planning documents: PRDs, TODO lists,
// roadmaps. Tasks extracted from them are forward-looking evidence that
// complements the backward-looking event store.
type DocsSource struct {
	dirs         []string
	maxFileBytes int64
}

// NewDocsSource builds a docs source from configuration, defaulting to
// the current directory and a 2 MiB per-file parse limit.
func NewDocsSource(cfg *config.DocsConfig) *DocsSource {
	s := &DocsSource{
		dirs:         []string{"."},
		maxFileBytes: defaultDocMaxFileBytes,
	}
	if cfg != nil {
		if len(cfg.Dirs) > 0 {
			s.dirs = cfg.Dirs
		}
		if cfg.MaxFileBytes > 0 {
			s.maxFileBytes = cfg.MaxFileBytes
		}
	}
	return s
}

func (s *DocsSource) Name() string {
	return "docs"
}

// Signals extracts tasks from discovered planning documents, classifies
// them by domain, and turns domains with enough tasks into signals.
// Documents carry no timestamps, so task counts are spread across the
// analysis window when computing frequency.
func (s *DocsSource) Signals(ctx context.Context, windowDays, minOccurrences int) (map[string]*patterns.Signal, error) {
	files, err := s.findTaskFiles()
	if err != nil {
		return nil, err
	}

	var tasks []string
	for _, file := range files {
		tasks = append(tasks, s.parseTasks(ctx, file)...)
	}

	domainTasks := make(map[string][]string)
	for _, task := range tasks {
		for _, domain := range classifyTask(task) {
			domainTasks[domain] = append(domainTasks[domain], task)
		}
	}

	var occurrences []patterns.Occurrence
	for domain, list := range domainTasks {
		if len(list) < minDomainTasks {
			continue
		}
		for _, task := range list {
			occurrences = append(occurrences, patterns.Occurrence{Type: domain, Description: task})
		}
	}

	signals, _ := patterns.BuildSignals(occurrences, windowDays, minOccurrences)
	return signals, nil
}

// findTaskFiles globs each configured directory for planning documents,
// deduplicating files that match more than one pattern.
func (s *DocsSource) findTaskFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, dir := range s.dirs {
		for _, pattern := range docFilePatterns {
			matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to glob for task files under %s", dir)
			}
			for _, match := range matches {
				if !seen[match] {
					seen[match] = true
					files = append(files, match)
				}
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// parseTasks extracts task-like lines from one markdown document.
// Unreadable or oversized files are skipped, never fatal.
func (s *DocsSource) parseTasks(ctx context.Context, path string) []string {
	info, err := os.Stat(path)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("doc_path", path).Debug("skipping unreadable task document")
		return nil
	}
	if info.Size() > s.maxFileBytes {
		logger.G(ctx).WithField("doc_path", path).WithField("size_bytes", info.Size()).
			Warn("skipping oversized task document")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("doc_path", path).Debug("skipping unreadable task document")
		return nil
	}
	content := string(data)

	var tasks []string

	for _, m := range checkboxTaskRe.FindAllStringSubmatch(content, -1) {
		tasks = append(tasks, strings.TrimSpace(m[1]))
	}

	for _, m := range numberedTaskRe.FindAllStringSubmatch(content, -1) {
		task := strings.TrimSpace(m[1])
		if len(task) > minListTaskLength {
			tasks = append(tasks, task)
		}
	}

	for _, m := range bulletTaskRe.FindAllStringSubmatch(content, -1) {
		task := strings.TrimSpace(m[1])
		if len(task) > minListTaskLength && !strings.HasPrefix(task, "[") {
			tasks = append(tasks, task)
		}
	}

	for _, m := range headerTaskRe.FindAllStringSubmatch(content, -1) {
		task := strings.TrimSpace(m[1])
		lower := strings.ToLower(task)
		for _, keyword := range headerTaskKeywords {
			if strings.Contains(lower, keyword) {
				tasks = append(tasks, task)
				break
			}
		}
	}

	return tasks
}

// classifyTask assigns a task to every domain whose keywords appear in
// it, or to "general" when none do.
func classifyTask(task string) []string {
	lower := strings.ToLower(task)

	var domains []string
	for domain, keywords := range domainKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				domains = append(domains, domain)
				break
			}
		}
	}

	if len(domains) == 0 {
		return []string{"general"}
	}
	sort.Strings(domains)
	return domains
}
