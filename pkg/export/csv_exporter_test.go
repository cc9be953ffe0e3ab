package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	payload, err := exporter.Render(Dataset{
		Headers: []string{"student_id", "final_grade"},
		Rows: []map[string]string{
			{"student_id": "STU-100", "final_grade": "91.00"},
			{"student_id": "STU-101", "final_grade": ""},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "student_id,final_grade\nSTU-100,91.00\nSTU-101,\n", string(payload))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	payload, err := exporter.Render(Dataset{
		Headers: []string{"course_code", "final_grade"},
		Rows: []map[string]string{
			{"course_code": "CS101", "final_grade": "88.00"},
		},
	}, "Evaluation STU-100")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, "%PDF", string(payload[:4]))
}
