package models

import (
	"encoding/json"
	"time"
)

// FileEntry is one stored upload as persisted in a case record.
type FileEntry struct {
	FileURL    string    `json:"fileUrl"`
	FileKey    string    `json:"fileKey"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// CaseFiles maps the thirteen well-known slot keys to zero or one stored file.
// It always marshals every key, with an empty array for unused slots.
type CaseFiles [SlotCount][]FileEntry

// Entry returns the file stored for slot i, if any.
func (f CaseFiles) Entry(i int) (FileEntry, bool) {
	if !ValidSlot(i) || len(f[i]) == 0 {
		return FileEntry{}, false
	}
	return f[i][0], true
}

// Set stores a single file for slot i; a nil entry empties the slot.
func (f *CaseFiles) Set(i int, e *FileEntry) {
	if !ValidSlot(i) {
		return
	}
	if e == nil {
		f[i] = []FileEntry{}
		return
	}
	f[i] = []FileEntry{*e}
}

func (f CaseFiles) MarshalJSON() ([]byte, error) {
	out := make(map[string][]FileEntry, SlotCount)
	for i := range f {
		entries := f[i]
		if entries == nil {
			entries = []FileEntry{}
		}
		out[SlotKey(i)] = entries
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the well-known keys and ignores anything else. Arrays
// longer than one keep only their first entry.
func (f *CaseFiles) UnmarshalJSON(data []byte) error {
	var in map[string][]FileEntry
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	for i := range f {
		entries, ok := in[SlotKey(i)]
		if !ok {
			continue
		}
		if len(entries) > 1 {
			entries = entries[:1]
		}
		if entries == nil {
			entries = []FileEntry{}
		}
		f[i] = entries
	}
	return nil
}
