package models

import "sort"

// ClinicalExam defines the clinical examination sub-document.
type ClinicalExam struct {
	FacialProfile  string `json:"facialProfile"`
	FacialSymmetry string `json:"facialSymmetry"`
	LipCompetence  string `json:"lipCompetence"`
	SmileArc       string `json:"smileArc"`

	TMJPain      bool   `json:"tmjPain"`
	TMJClicking  bool   `json:"tmjClicking"`
	TMJDeviation bool   `json:"tmjDeviation"`
	TMJNotes     string `json:"tmjNotes"`

	GingivalHealth   string `json:"gingivalHealth"`
	FrenumAttachment string `json:"frenumAttachment"`
	SoftTissueNotes  string `json:"softTissueNotes"`

	MolarRelationship  string `json:"molarRelationship"`
	CanineRelationship string `json:"canineRelationship"`
	Overjet            string `json:"overjet"`
	Overbite           string `json:"overbite"`
	Crossbite          string `json:"crossbite"`
	Crowding           string `json:"crowding"`
	Spacing            string `json:"spacing"`
	HardTissueNotes    string `json:"hardTissueNotes"`

	MissingTeeth        ToothSet `json:"missingTeeth"`
	ImpactedTeeth       ToothSet `json:"impactedTeeth"`
	CrownedTeeth        ToothSet `json:"crownedTeeth"`
	ImplantTeeth        ToothSet `json:"implantTeeth"`
	DoNotMoveTeeth      ToothSet `json:"doNotMoveTeeth"`
	AttachmentFreeTeeth ToothSet `json:"attachmentFreeTeeth"`
}

// ToothSet is a set of FDI tooth numbers, kept sorted.
type ToothSet []int

// ValidTooth reports whether n is a permanent tooth in FDI notation.
func ValidTooth(n int) bool {
	quadrant, position := n/10, n%10
	return quadrant >= 1 && quadrant <= 4 && position >= 1 && position <= 8
}

// NewToothSet sorts and de-duplicates teeth.
func NewToothSet(teeth []int) ToothSet {
	out := make(ToothSet, 0, len(teeth))
	seen := make(map[int]struct{}, len(teeth))
	for _, t := range teeth {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// Contains reports whether tooth n is in the set.
func (s ToothSet) Contains(n int) bool {
	i := sort.SearchInts(s, n)
	return i < len(s) && s[i] == n
}
