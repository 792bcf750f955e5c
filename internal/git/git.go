package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitStatus contains git integration status information
type GitStatus struct {
	IsRepo        bool
	LedgerTracked bool     // Ledger directory committed to git (bad)
	LedgerIgnored bool     // Ledger directory in .gitignore (good)
	TrackedKeys   []string // Exported key files tracked by git (bad)
	IgnoredKeys   []string // Exported key files in .gitignore (good)
	UnignoredKeys []string // Exported key files not in .gitignore (warning)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a path is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a path is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if the path is ignored
	return err == nil
}

// CheckGitIntegration checks whether the ledger directory and exported key
// files are kept out of git
func CheckGitIntegration(workDir, ledgerDir string, keyFiles []string) (*GitStatus, error) {
	status := &GitStatus{}

	if !IsGitRepo(workDir) {
		return status, nil
	}
	status.IsRepo = true

	status.LedgerTracked = IsTracked(workDir, ledgerDir)
	status.LedgerIgnored = IsIgnored(workDir, ledgerDir)

	for _, file := range keyFiles {
		if IsTracked(workDir, file) {
			status.TrackedKeys = append(status.TrackedKeys, file)
		}
		if IsIgnored(workDir, file) {
			status.IgnoredKeys = append(status.IgnoredKeys, file)
		} else {
			status.UnignoredKeys = append(status.UnignoredKeys, file)
		}
	}

	return status, nil
}

// HasWarnings reports whether FormatGitStatus would print a problem
func (s *GitStatus) HasWarnings() bool {
	if !s.IsRepo {
		return false
	}
	return s.LedgerTracked || !s.LedgerIgnored || len(s.TrackedKeys) > 0 || len(s.UnignoredKeys) > 0
}

// FormatGitStatus formats git status for display
func FormatGitStatus(status *GitStatus, ledgerDir string) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	switch {
	case status.LedgerTracked:
		result.WriteString(fmt.Sprintf("   error: %s is tracked by git (run: git rm -r --cached %s)\n", ledgerDir, ledgerDir))
	case !status.LedgerIgnored:
		result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore (add to .gitignore)\n", ledgerDir))
	default:
		result.WriteString(fmt.Sprintf("   ok: %s is ignored by git\n", ledgerDir))
	}

	// Sealed keys are still worth keeping private
	for _, file := range status.TrackedKeys {
		result.WriteString(fmt.Sprintf("   error: key file %s tracked by git (run: git rm --cached %s)\n", file, file))
	}

	trackedSet := make(map[string]bool, len(status.TrackedKeys))
	for _, f := range status.TrackedKeys {
		trackedSet[f] = true
	}
	for _, file := range status.UnignoredKeys {
		if !trackedSet[file] {
			result.WriteString(fmt.Sprintf("   warning: key file %s not in .gitignore\n", file))
		}
	}
	if len(status.UnignoredKeys) == 0 && len(status.IgnoredKeys) > 0 {
		result.WriteString(fmt.Sprintf("   ok: %d key file(s) in .gitignore\n", len(status.IgnoredKeys)))
	}

	return result.String()
}
