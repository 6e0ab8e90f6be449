package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMajorRoomId(t *testing.T) {
	tcases := []struct {
		name     string
		major    string
		expected string
	}{
		{
			name:     "single word",
			major:    "Informatique",
			expected: "room_major_informatique",
		},
		{
			name:     "multiple words",
			major:    "Genie Industriel",
			expected: "room_major_genie_industriel",
		},
		{
			name:     "extra whitespace",
			major:    "  Supply   Chain ",
			expected: "room_major_supply_chain",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MajorRoomId(tc.major))
		})
	}
}

func TestIsDerivedRoomId(t *testing.T) {
	assert.True(t, IsDerivedRoomId(GlobalRoomId))
	assert.True(t, IsDerivedRoomId(MajorRoomId("Genie Industriel")))
	assert.False(t, IsDerivedRoomId("aX3kPz9"), "ad-hoc room keys are not derived")
}

func TestDefaultIcon(t *testing.T) {
	assert.Equal(t, "PR", DefaultIcon("projets"))
	assert.Equal(t, "A", DefaultIcon("a"))
	assert.Equal(t, "", DefaultIcon(""))
}

func TestMessageKind(t *testing.T) {
	for _, k := range []MessageKind{KindText, KindImage, KindAudio, KindVideo, KindFile} {
		assert.True(t, k.Valid(), "expected %q to be valid", k)
	}
	assert.False(t, MessageKind("GIF").Valid())

	assert.False(t, KindText.IsAttachment())
	assert.True(t, KindImage.IsAttachment())
	assert.False(t, MessageKind("GIF").IsAttachment())
}
