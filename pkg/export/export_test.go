package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"Matricula", "Full Name"},
		Rows: [][]string{
			{"2024-0001", "Ana Torres"},
			{"2024-0002"},
		},
	}

	payload, err := exporter.Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Matricula,Full Name", lines[0])
	assert.Equal(t, "2024-0001,Ana Torres", lines[1])
	assert.Equal(t, "2024-0002,", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	data := Dataset{
		Headers: []string{"Matricula", "Student"},
		Rows:    [][]string{{"2024-0001", "Ana Torres"}},
	}

	payload, err := exporter.Render(data, "Roster MAT-3A")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	exporter := NewPDFExporter()

	_, err := exporter.Render(Dataset{}, "")
	require.Error(t, err)
}
