package attendance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNormalize_DefaultKeys(t *testing.T) {
	n := NewNormalizer(nil, DefaultFieldMapping())
	raw := []RawRecord{{
		"subject":      "Maths",
		"subjectCode":  "MA101",
		"presentCount": float64(30),
		"absentCount":  "10",
		"session":      float64(999),
		"facultName":   "  Dr. Iyer ",
		"termName":     "Sem 3",
	}}

	got, skipped := n.Normalize(raw)
	require.Empty(t, skipped)
	require.Len(t, got, 1)

	assert.Equal(t, SubjectRecord{
		Subject:     "Maths",
		SubjectCode: "MA101",
		Present:     30,
		Absent:      10,
		Total:       40,
		Percentage:  75,
		Faculty:     "Dr. Iyer",
		Term:        "Sem 3",
	}, got[0])
}

func TestNormalize_PartialMappingFallsBack(t *testing.T) {
	mapping := FieldMapping{FieldPresent: "attended", FieldSubject: "courseName"}
	n := NewNormalizer(mapping, DefaultFieldMapping())

	got, skipped := n.Normalize([]RawRecord{{
		"courseName":  "Physics",
		"attended":    float64(8),
		"absentCount": float64(2),
	}})
	require.Empty(t, skipped)
	require.Len(t, got, 1)

	assert.Equal(t, "Physics", got[0].Subject)
	assert.Equal(t, 8, got[0].Present)
	assert.Equal(t, 2, got[0].Absent)
	assert.Equal(t, 80.0, got[0].Percentage)
}

func TestNormalize_FirstOccurrenceWins(t *testing.T) {
	n := NewNormalizer(nil, DefaultFieldMapping())
	raw := []RawRecord{
		{"subject": "Maths", "subjectCode": "MA101", "presentCount": float64(10), "absentCount": float64(0)},
		{"subject": "Maths", "subjectCode": "MA101", "presentCount": float64(1), "absentCount": float64(9)},
		{"subject": "Maths", "subjectCode": "MA102", "presentCount": float64(5), "absentCount": float64(5)},
	}

	got, _ := n.Normalize(raw)
	require.Len(t, got, 2)
	assert.Equal(t, 10, got[0].Present)
	assert.Equal(t, "MA102", got[1].SubjectCode)
}

func TestNormalize_SkipsInvalidRecords(t *testing.T) {
	n := NewNormalizer(nil, DefaultFieldMapping())
	raw := []RawRecord{
		{"subject": "Broken", "presentCount": "много"},
		{"subject": "Negative", "presentCount": float64(-1)},
		{"subject": "Fine", "presentCount": float64(3), "absentCount": float64(1)},
	}

	got, skipped := n.Normalize(raw)
	assert.Len(t, skipped, 2)
	require.Len(t, got, 1)
	assert.Equal(t, "Fine", got[0].Subject)
}

func TestNormalize_RejectsOutOfRangeAndFractionalCounts(t *testing.T) {
	n := NewNormalizer(nil, DefaultFieldMapping())
	raw := []RawRecord{
		{"subject": "Huge", "presentCount": json.Number("1e20"), "absentCount": float64(1)},
		{"subject": "Fraction", "presentCount": float64(3), "absentCount": json.Number("2.9")},
		{"subject": "FractionText", "presentCount": "2.5", "absentCount": float64(0)},
		{"subject": "WholeFloat", "presentCount": json.Number("4.0"), "absentCount": "1"},
	}

	got, skipped := n.Normalize(raw)
	assert.Len(t, skipped, 3)
	require.Len(t, got, 1)
	assert.Equal(t, "WholeFloat", got[0].Subject)
	assert.Equal(t, 4, got[0].Present)
	assert.Equal(t, 5, got[0].Total)
}

func TestNormalize_MissingSubjectIsUnknown(t *testing.T) {
	got, _ := NewNormalizer(nil, DefaultFieldMapping()).Normalize([]RawRecord{{"presentCount": float64(0)}})
	require.Len(t, got, 1)
	assert.Equal(t, "Unknown", got[0].Subject)
	assert.Equal(t, 0.0, got[0].Percentage)
}

func TestDefaultFieldMapping_IsIndependentCopy(t *testing.T) {
	m := DefaultFieldMapping()
	m[FieldPresent] = "changed"

	assert.Equal(t, "presentCount", DefaultFieldMapping()[FieldPresent])
}

func TestCustomThresholds_PreservesOrder(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		var th Thresholds
		err := yaml.Unmarshal([]byte("default: 75\nsafe_buffer: 10\ncustom:\n  Lab: 60\n  TYL: 90\n  Elective: 65\n"), &th)
		require.NoError(t, err)
		assert.Equal(t, CustomThresholds{{"Lab", 60}, {"TYL", 90}, {"Elective", 65}}, th.Custom)

		out, err := yaml.Marshal(th)
		require.NoError(t, err)
		assert.Contains(t, string(out), "custom:\n    Lab: 60\n    TYL: 90\n    Elective: 65\n")
	})

	t.Run("json", func(t *testing.T) {
		var th Thresholds
		err := json.Unmarshal([]byte(`{"default":75,"safe_buffer":10,"custom":{"TYL":90,"Lab":60}}`), &th)
		require.NoError(t, err)
		assert.Equal(t, CustomThresholds{{"TYL", 90}, {"Lab", 60}}, th.Custom)

		out, err := json.Marshal(th.Custom)
		require.NoError(t, err)
		assert.JSONEq(t, `{"TYL":90,"Lab":60}`, string(out))
	})

	t.Run("null custom", func(t *testing.T) {
		var th Thresholds
		require.NoError(t, yaml.Unmarshal([]byte("default: 80\ncustom:\n"), &th))
		assert.Nil(t, th.Custom)
		assert.Equal(t, 80.0, th.Default)
	})
}
