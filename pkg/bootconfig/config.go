package bootconfig

import (
	"unicode/utf16"
)

const (
	// MaxEntries is the number of boot entries a Menu can hold. Records
	// beyond this are dropped.
	MaxEntries = 10
	// MaxNameLen is the maximum length of an entry name, in UTF-16 code
	// units
	MaxNameLen = 31
	// MaxPathLen is the maximum length of an entry path, in UTF-16 code
	// units
	MaxPathLen = 255
)

// BootEntry is a boot configuration
// Name: label shown in the menu
// Path: volume-relative path of the executable image
type BootEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// IsValid returns true if the BootEntry has both a name and a path
func (be BootEntry) IsValid() bool {
	return be.Name != "" && be.Path != ""
}

// Menu is the ordered, fixed-capacity list of boot entries read from the
// configuration file. It is not modified once built.
type Menu struct {
	entries [MaxEntries]BootEntry
	count   int
}

// NewMenu builds a Menu from the given entries, in order. Invalid entries
// are skipped and entries past MaxEntries are dropped.
func NewMenu(entries ...BootEntry) *Menu {
	m := &Menu{}
	for _, e := range entries {
		if m.Full() {
			break
		}
		m.add(e)
	}
	return m
}

func (m *Menu) add(e BootEntry) bool {
	if m.Full() || !e.IsValid() {
		return false
	}
	m.entries[m.count] = e
	m.count++
	return true
}

// Len returns the number of entries
func (m *Menu) Len() int {
	if m == nil {
		return 0
	}
	return m.count
}

// Full returns true once MaxEntries entries have been added
func (m *Menu) Full() bool {
	return m.count >= MaxEntries
}

// Entry returns the entry at index idx. It panics if idx is out of range,
// like a slice would.
func (m *Menu) Entry(idx int) BootEntry {
	return m.Entries()[idx]
}

// Entries returns a copy of the menu entries
func (m *Menu) Entries() []BootEntry {
	if m == nil {
		return nil
	}
	entries := make([]BootEntry, m.count)
	copy(entries, m.entries[:m.count])
	return entries
}

// codeUnits returns the length of s in UTF-16 code units
func codeUnits(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// truncate cuts s to at most max UTF-16 code units without splitting a
// surrogate pair
func truncate(s string, max int) string {
	n := 0
	for i, r := range s {
		l := utf16.RuneLen(r)
		if n+l > max {
			return s[:i]
		}
		n += l
	}
	return s
}
