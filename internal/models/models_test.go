package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want FlexString
	}{
		{`"6"`, "6"},
		{`6`, "6"},
		{`0`, "0"},
		{`2.5`, "2.5"},
		{`""`, ""},
	}
	for _, tt := range tests {
		var s FlexString
		require.NoError(t, json.Unmarshal([]byte(tt.in), &s), tt.in)
		assert.Equal(t, tt.want, s, tt.in)
	}

	s := FlexString("kept")
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Equal(t, FlexString("kept"), s)
	assert.Error(t, json.Unmarshal([]byte(`true`), &s))
}

func TestCaseFilesJSON(t *testing.T) {
	var files CaseFiles
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	files.Set(0, &FileEntry{FileURL: "https://cdn.example.com/a.png", FileKey: "patients/a.png", UploadedAt: at})

	raw, err := json.Marshal(files)
	require.NoError(t, err)

	var keys map[string][]FileEntry
	require.NoError(t, json.Unmarshal(raw, &keys))
	assert.Len(t, keys, SlotCount)
	assert.Len(t, keys["img1"], 1)
	assert.Empty(t, keys["model2"])
	assert.NotNil(t, keys["model2"])

	var back CaseFiles
	require.NoError(t, json.Unmarshal([]byte(`{"img1":[{"fileUrl":"u1","fileKey":"k1"},{"fileUrl":"u2","fileKey":"k2"}],"extra":[]}`), &back))
	e, ok := back.Entry(0)
	require.True(t, ok)
	assert.Equal(t, "k1", e.FileKey)
	_, ok = back.Entry(1)
	assert.False(t, ok)
	_, ok = back.Entry(SlotCount)
	assert.False(t, ok)
}

func TestToothSet(t *testing.T) {
	s := NewToothSet([]int{21, 11, 21, 48})
	assert.Equal(t, ToothSet{11, 21, 48}, s)
	assert.True(t, s.Contains(21))
	assert.False(t, s.Contains(22))

	assert.True(t, ValidTooth(11))
	assert.True(t, ValidTooth(48))
	assert.False(t, ValidTooth(10))
	assert.False(t, ValidTooth(19))
	assert.False(t, ValidTooth(51))
}

func TestSlotLayout(t *testing.T) {
	assert.Equal(t, "img1", SlotKey(0))
	assert.Equal(t, "img11", SlotKey(10))
	assert.Equal(t, "model1", SlotKey(11))
	assert.Equal(t, SlotKindModel, KindOf(12))

	for in, want := range map[string]int{"0": 0, "12": 12, "img3": 2, "model2": 12} {
		got, ok := ParseSlot(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"13", "-1", "img0", "model3", ""} {
		_, ok := ParseSlot(in)
		assert.False(t, ok, in)
	}
}
