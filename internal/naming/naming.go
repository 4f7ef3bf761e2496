// Package naming derives filesystem-safe worktree folder names from
// repository URLs and branch names. Everything here is pure and deterministic.
package naming

import (
	"regexp"
	"strings"
)

// FallbackFolderName is returned when normalization leaves nothing usable.
const FallbackFolderName = "unnamed-worktree"

var (
	nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

	repoURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^https://(www\.)?(github\.com|gitlab\.com|bitbucket\.org)/[\w.-]+/[\w.-]+(\.git)?/?$`),
		regexp.MustCompile(`^git@(github\.com|gitlab\.com|bitbucket\.org):[\w.-]+/[\w.-]+(\.git)?$`),
		regexp.MustCompile(`^ssh://git@(github\.com|gitlab\.com|bitbucket\.org)/[\w.-]+/[\w.-]+(\.git)?$`),
	}
)

// RepoName extracts the short repository name from an SSH, HTTPS, or
// local-path URL form, with any trailing ".git" stripped.
func RepoName(repoURL string) string {
	s := strings.TrimSpace(repoURL)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	// SSH short form uses ':' as the path separator, HTTPS and local
	// paths use '/'.
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// FolderName derives the worktree directory name for a (repoURL, branchName)
// pair: "<repo>-<last branch segment>", lowercased, with every run of
// non-alphanumeric characters collapsed to a single hyphen. The result never
// has leading or trailing hyphens and is never empty. Distinct inputs may
// normalize to the same name; callers treat "already exists" as a sync, not
// an error.
func FolderName(repoURL, branchName string) string {
	branch := branchName
	if i := strings.LastIndex(branch, "/"); i >= 0 {
		branch = branch[i+1:]
	}
	name := RepoName(repoURL) + "-" + branch
	name = nonAlnumRe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	name = strings.ToLower(name)
	if name == "" {
		return FallbackFolderName
	}
	return name
}

// IsValidRepoURL reports whether repoURL looks like a GitHub, GitLab, or
// Bitbucket HTTPS or SSH remote.
func IsValidRepoURL(repoURL string) bool {
	repoURL = strings.TrimSpace(repoURL)
	for _, re := range repoURLPatterns {
		if re.MatchString(repoURL) {
			return true
		}
	}
	return false
}
