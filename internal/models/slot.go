package models

import (
	"strconv"
	"time"
)

// Slot layout of the files tab: eleven photographs followed by two scans.
const (
	ImageSlotCount = 11
	ModelSlotCount = 2
	SlotCount      = ImageSlotCount + ModelSlotCount
)

// SlotKind tells which file formats a slot accepts.
type SlotKind string

const (
	SlotKindImage SlotKind = "image"
	SlotKindModel SlotKind = "model"
)

var acceptedExtensions = map[SlotKind][]string{
	SlotKindImage: {"jpg", "jpeg", "png"},
	SlotKindModel: {"ply", "stl"},
}

// ValidSlot reports whether i addresses one of the fixed slots.
func ValidSlot(i int) bool {
	return i >= 0 && i < SlotCount
}

// KindOf returns the kind of slot i. Callers check ValidSlot first.
func KindOf(i int) SlotKind {
	if i < ImageSlotCount {
		return SlotKindImage
	}
	return SlotKindModel
}

// SlotKey returns the files sub-document key for slot i: img1..img11, model1, model2.
func SlotKey(i int) string {
	if i < ImageSlotCount {
		return "img" + strconv.Itoa(i+1)
	}
	return "model" + strconv.Itoa(i-ImageSlotCount+1)
}

// ParseSlot accepts a slot index or a files sub-document key.
func ParseSlot(s string) (int, bool) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, ValidSlot(i)
	}
	for i := 0; i < SlotCount; i++ {
		if SlotKey(i) == s {
			return i, true
		}
	}
	return 0, false
}

// AcceptedExtensions lists the lower-case extensions, without dot, allowed in a slot kind.
func AcceptedExtensions(kind SlotKind) []string {
	return append([]string(nil), acceptedExtensions[kind]...)
}

// UploadSlot is the state of one file slot of an intake form.
type UploadSlot struct {
	Index      int        `json:"index"`
	Key        string     `json:"key"`
	Kind       SlotKind   `json:"kind"`
	RemoteURL  string     `json:"remoteUrl,omitempty"`
	StorageKey string     `json:"storageKey,omitempty"`
	Progress   float64    `json:"progress"`
	InFlight   bool       `json:"inFlight"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

// Empty reports whether no file is stored in the slot.
func (s UploadSlot) Empty() bool {
	return s.RemoteURL == "" && s.StorageKey == ""
}
