package scan

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/geostac/geosync/internal/utils"
)

// IgnoreFilename is read from the collection directory, gitignore syntax.
const IgnoreFilename = ".geosyncignore"

var defaultIgnoreLines = []string{
	// catalog metadata, never data assets
	"versions.json",
	"catalog.json",
	"collection.json",
	"schema.json",
	".geosync/",
	".geosyncignore",
	// hidden and transient
	".*",
	"*.tmp",
	"*.partial",
	"*.log",
	"logs/",
	// common tooling leftovers
	"__pycache__/",
	".ipynb_checkpoints/",
	// OS noise
	".DS_Store",
	"Thumbs.db",
}

// IgnoreList decides which paths a collection scan skips.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string) *IgnoreList {
	return &IgnoreList{baseDir: baseDir}
}

// Load compiles the default rules plus any collection-level ignore file.
func (l *IgnoreList) Load() {
	ignorePath := filepath.Join(l.baseDir, IgnoreFilename)
	lines := defaultIgnoreLines

	if utils.FileExists(ignorePath) {
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		} else {
			defer file.Close()
			rules := 0
			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					lines = append(lines, line)
					rules++
				}
			}
			if err := scanner.Err(); err != nil {
				slog.Warn("error reading ignore file", "path", ignorePath, "error", err)
			} else {
				slog.Debug("loaded ignore file", "path", ignorePath, "rules", rules)
			}
		}
	}

	l.ignore = gitignore.CompileIgnoreLines(lines...)
}

// Matches reports whether the slash-relative path is ignored.
func (l *IgnoreList) Matches(relPath string) bool {
	if l.ignore == nil {
		l.Load()
	}
	return l.ignore.MatchesPath(relPath)
}
