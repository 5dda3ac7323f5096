package slot

import (
	"fmt"
	"os"
	"path/filepath"

	"codeslot/internal/logging"
	"codeslot/internal/workspace"
)

// instructions is the standing AGENTS.md written into every new slot. It
// tells the host worker how the file-mediated protocol works; per-dispatch
// specifics (exact paths, unlock command) arrive in each request artifact.
const instructions = `# Slot instructions

This directory is a codeslot work slot. Requests arrive as timestamped
files in the messages/ directory. Each request names the exact temporary
and final response paths to use and the command that releases this slot.

Rules:

- Write your response to the temporary path first, then rename it to the
  final path so readers never observe a half-written file.
- Do not create or delete files outside this slot directory.
- Release the slot only when instructed to by the request.
`

// ProvisionOptions controls Provision behavior.
type ProvisionOptions struct {
	// Force unlocks locked slots and rewrites configuration
	// unconditionally.
	Force bool
	// DryRun computes the same decisions without touching the filesystem.
	DryRun bool
}

// ProvisionResult describes what Provision did (or, under DryRun, would do).
type ProvisionResult struct {
	// Created lists slots that were created or rewritten.
	Created []string `json:"created"`
	// SkippedExisting lists unlocked slots reused as-is.
	SkippedExisting []string `json:"skipped_existing"`
	// SkippedLocked lists locked slots that were passed over. These do
	// not count toward the requested number.
	SkippedLocked []string `json:"skipped_locked"`
}

// Provision ensures count usable slots exist under root, reusing existing
// unlocked slots in ordinal order before creating new ones. New ordinals
// continue above the highest existing ordinal, even when lower-numbered
// locked slots were skipped.
func Provision(root string, count int, tpl workspace.Template, opts ProvisionOptions, logger *logging.Logger) (*ProvisionResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be a positive integer, got %d", count)
	}

	// Materialized once: the configuration depends only on the template,
	// not on the slot it lands in.
	configData, err := workspace.Materialize(tpl.Content, tpl.Dir)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create pool root: %w", err)
		}
	}

	slots, err := Enumerate(root)
	if err != nil {
		return nil, err
	}

	maxOrdinal := 0
	for _, s := range slots {
		if s.Ordinal > maxOrdinal {
			maxOrdinal = s.Ordinal
		}
	}

	result := &ProvisionResult{
		Created:         []string{},
		SkippedExisting: []string{},
		SkippedLocked:   []string{},
	}

	remaining := count
	for _, s := range slots {
		if remaining == 0 {
			break
		}

		locked := s.Locked()
		switch {
		case locked && !opts.Force:
			result.SkippedLocked = append(result.SkippedLocked, s.Name)

		case locked && opts.Force:
			if !opts.DryRun {
				if err := Unlock(s.Path); err != nil {
					return nil, err
				}
				if err := writeConfig(s, configData); err != nil {
					return nil, err
				}
			}
			logger.Info("slot force-reprovisioned", "slot", s.Name)
			result.Created = append(result.Created, s.Name)
			remaining--

		case opts.Force:
			if !opts.DryRun {
				if err := writeConfig(s, configData); err != nil {
					return nil, err
				}
			}
			result.Created = append(result.Created, s.Name)
			remaining--

		default:
			// Unlocked and untouched, except a missing
			// configuration is backfilled.
			if _, err := os.Stat(s.ConfigPath()); os.IsNotExist(err) && !opts.DryRun {
				if err := writeConfig(s, configData); err != nil {
					return nil, err
				}
			}
			result.SkippedExisting = append(result.SkippedExisting, s.Name)
			remaining--
		}
	}

	for i := 0; i < remaining; i++ {
		n := maxOrdinal + 1 + i
		s := Slot{
			Name:    Name(n),
			Ordinal: n,
			Path:    filepath.Join(root, Name(n)),
		}
		if !opts.DryRun {
			if err := createSlot(s, configData); err != nil {
				return nil, err
			}
		}
		logger.Info("slot created", "slot", s.Name)
		result.Created = append(result.Created, s.Name)
	}

	return result, nil
}

func createSlot(s Slot, configData []byte) error {
	if err := os.MkdirAll(s.MessagesDir(), 0755); err != nil {
		return fmt.Errorf("failed to create slot %s: %w", s.Name, err)
	}
	if err := writeConfig(s, configData); err != nil {
		return err
	}
	instructionsPath := filepath.Join(s.Path, InstructionsFileName)
	if err := os.WriteFile(instructionsPath, []byte(instructions), 0644); err != nil {
		return fmt.Errorf("failed to write %s for %s: %w", InstructionsFileName, s.Name, err)
	}
	return nil
}

func writeConfig(s Slot, configData []byte) error {
	if err := os.WriteFile(s.ConfigPath(), configData, 0644); err != nil {
		return fmt.Errorf("failed to write config for %s: %w", s.Name, err)
	}
	return nil
}

// UnlockSlots removes lock markers. Exactly one of name or all must be
// given. With all, every locked slot is unlocked and the list of slots that
// were locked is returned; under dryRun the same list is computed without
// removing anything. With a name, a missing slot directory is an error and
// an already-unlocked slot yields an empty list.
func UnlockSlots(root, name string, all, dryRun bool, logger *logging.Logger) ([]string, error) {
	if (name == "") == !all {
		return nil, fmt.Errorf("exactly one of a slot name or --all must be given")
	}

	if all {
		slots, err := Enumerate(root)
		if err != nil {
			return nil, err
		}
		unlocked := []string{}
		for _, s := range slots {
			if !s.Locked() {
				continue
			}
			if !dryRun {
				if err := Unlock(s.Path); err != nil {
					return nil, err
				}
				logger.Info("slot unlocked", "slot", s.Name)
			}
			unlocked = append(unlocked, s.Name)
		}
		return unlocked, nil
	}

	s, err := Find(root, name)
	if err != nil {
		return nil, err
	}
	if !s.Locked() {
		return []string{}, nil
	}
	if !dryRun {
		if err := Unlock(s.Path); err != nil {
			return nil, err
		}
		logger.Info("slot unlocked", "slot", s.Name)
	}
	return []string{s.Name}, nil
}

// Info is one row of the pool summary.
type Info struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	ConfigPath string `json:"config_path,omitempty"`
	Locked     bool   `json:"locked"`
}

// List returns the pool summary in ordinal order. ConfigPath is empty when
// the slot has no materialized configuration yet.
func List(root string) ([]Info, error) {
	slots, err := Enumerate(root)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(slots))
	for _, s := range slots {
		info := Info{
			Name:   s.Name,
			Path:   s.Path,
			Locked: s.Locked(),
		}
		if _, err := os.Stat(s.ConfigPath()); err == nil {
			info.ConfigPath = s.ConfigPath()
		}
		infos = append(infos, info)
	}
	return infos, nil
}
