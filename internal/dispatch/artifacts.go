package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"codeslot/internal/slot"
)

// Artifact name suffixes. The worker writes the temporary name first and
// renames it to the final name, so observers never read a partial response.
const (
	requestSuffix      = "_req.md"
	responseSuffix     = "_res.md"
	responseTempSuffix = "_res.tmp.md"
)

// timestampLayout prefixes every artifact so names sort chronologically and
// are never reused across dispatches.
const timestampLayout = "20060102T150405.000"

// artifactPaths holds the three per-dispatch artifact locations.
type artifactPaths struct {
	request      string
	responseTemp string
	response     string
}

func newArtifactPaths(messagesDir string, now time.Time) artifactPaths {
	ts := strings.ReplaceAll(now.UTC().Format(timestampLayout), ".", "")
	return artifactPaths{
		request:      filepath.Join(messagesDir, ts+requestSuffix),
		responseTemp: filepath.Join(messagesDir, ts+responseTempSuffix),
		response:     filepath.Join(messagesDir, ts+responseSuffix),
	}
}

// staleArtifactGlobs match files left behind by a previous occupant of a
// slot: message artifacts, copied prompt files and the liveness marker.
// Purging them makes a recycled slot present as fresh.
var staleArtifactGlobs = []glob.Glob{
	glob.MustCompile("*" + requestSuffix),
	glob.MustCompile("*" + responseSuffix),
	glob.MustCompile("*" + responseTempSuffix),
	glob.MustCompile("prompt-*.md"),
	glob.MustCompile(slot.ReadyMarkerName),
}

func isStaleArtifact(name string) bool {
	for _, g := range staleArtifactGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// purgeStaleArtifacts removes prior-session files from the slot directory
// and its messages directory.
func purgeStaleArtifacts(s slot.Slot) error {
	for _, dir := range []string{s.Path, s.MessagesDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isStaleArtifact(entry.Name()) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return fmt.Errorf("failed to purge %s: %w", entry.Name(), err)
			}
		}
	}
	return nil
}

// requestSpec is everything the request artifact must tell the worker.
type requestSpec struct {
	SessionID    string
	Prompt       string
	PromptFile   string
	Attachments  []string
	ResponseTemp string
	Response     string
	LockPath     string
}

// renderRequest produces the request artifact body. The exact temporary and
// final response paths and the self-unlock command are spelled out so the
// worker needs no out-of-band knowledge to complete the protocol.
func renderRequest(spec requestSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Request %s\n\n", spec.SessionID)

	if spec.Prompt != "" {
		b.WriteString(spec.Prompt)
		b.WriteString("\n\n")
	}
	if spec.PromptFile != "" {
		fmt.Fprintf(&b, "The full prompt is in `%s`.\n\n", spec.PromptFile)
	}
	if len(spec.Attachments) > 0 {
		b.WriteString("Attached files:\n")
		for _, a := range spec.Attachments {
			fmt.Fprintf(&b, "- `%s`\n", a)
		}
		b.WriteString("\n")
	}

	b.WriteString("When you are done:\n\n")
	fmt.Fprintf(&b, "1. Write your complete response to `%s`.\n", spec.ResponseTemp)
	fmt.Fprintf(&b, "2. Rename it to `%s`.\n", spec.Response)
	fmt.Fprintf(&b, "3. Release this slot by running: `rm %s`\n", spec.LockPath)
	return b.String()
}

func writeRequest(path string, spec requestSpec) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create messages directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(renderRequest(spec)), 0644); err != nil {
		return fmt.Errorf("failed to write request artifact: %w", err)
	}
	return nil
}
