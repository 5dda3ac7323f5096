package slot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// DirPrefix is the prefix of every slot directory name.
	DirPrefix = "slot-"
	// ConfigExtension is the extension of the materialized workspace
	// configuration file, named after the slot (slot-N.code-workspace).
	ConfigExtension = ".code-workspace"
	// MessagesDirName is the subdirectory holding request and response
	// artifacts.
	MessagesDirName = "messages"
	// InstructionsFileName is the auxiliary standing-instructions file
	// written into every newly created slot.
	InstructionsFileName = "AGENTS.md"
)

// ErrNoAvailableSlot is returned by Claim when every slot in the pool is
// locked. The caller can provision more slots.
var ErrNoAvailableSlot = errors.New("no available slot in pool")

// ErrSlotNotFound is returned when a named slot directory does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// Slot identifies one numbered work directory in the pool.
type Slot struct {
	// Name is the directory name, slot-N.
	Name string
	// Ordinal is N.
	Ordinal int
	// Path is the absolute slot directory path.
	Path string
}

// ConfigPath returns the path of the slot's materialized configuration file.
func (s Slot) ConfigPath() string {
	return filepath.Join(s.Path, s.Name+ConfigExtension)
}

// MessagesDir returns the path of the slot's messages directory.
func (s Slot) MessagesDir() string {
	return filepath.Join(s.Path, MessagesDirName)
}

// Locked reports whether the slot's lock marker is present.
func (s Slot) Locked() bool {
	return IsLocked(s.Path)
}

// Name returns the directory name for an ordinal.
func Name(ordinal int) string {
	return DirPrefix + strconv.Itoa(ordinal)
}

// parseOrdinal extracts N from a slot-N directory name. Names whose suffix
// is not a valid positive integer are not slots.
func parseOrdinal(name string) (int, bool) {
	if !strings.HasPrefix(name, DirPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, DirPrefix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Enumerate returns the existing slots under root in ascending ordinal
// order. Entries whose name does not parse as slot-N are ignored. A missing
// root yields an empty pool, not an error.
func Enumerate(root string) ([]Slot, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pool root: %w", err)
	}

	var slots []Slot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, ok := parseOrdinal(entry.Name())
		if !ok {
			continue
		}
		slots = append(slots, Slot{
			Name:    entry.Name(),
			Ordinal: n,
			Path:    filepath.Join(root, entry.Name()),
		})
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Ordinal < slots[j].Ordinal
	})
	return slots, nil
}

// Find returns the slot with the given directory name, or ErrSlotNotFound.
func Find(root, name string) (Slot, error) {
	n, ok := parseOrdinal(name)
	if !ok {
		return Slot{}, fmt.Errorf("%w: %q is not a slot name", ErrSlotNotFound, name)
	}
	path := filepath.Join(root, name)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return Slot{}, fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	return Slot{Name: name, Ordinal: n, Path: path}, nil
}

// Claim takes exclusive ownership of the first free slot in ordinal order by
// creating its lock marker with O_EXCL. It returns ErrNoAvailableSlot when
// every slot is locked (including slots another process claimed between
// enumeration and the create attempt).
func Claim(root string) (Slot, error) {
	slots, err := Enumerate(root)
	if err != nil {
		return Slot{}, err
	}

	for _, s := range slots {
		won, err := TryLock(s.Path)
		if err != nil {
			return Slot{}, err
		}
		if won {
			return s, nil
		}
	}
	return Slot{}, ErrNoAvailableSlot
}
