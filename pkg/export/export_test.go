package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Student ID", "Last Name", "Balance"},
		Rows: []map[string]string{
			{"Student ID": "STUABC123", "Last Name": "Peña", "Balance": "150.00"},
			{"Student ID": "STUDEF456", "Last Name": "Cruz, Jr.", "Balance": "0.00"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student ID,Last Name,Balance", lines[0])
	assert.Equal(t, `STUDEF456,"Cruz, Jr.",0.00`, lines[2])
}

func TestCSVExporterWithBOM(t *testing.T) {
	out, err := NewCSVExporter(WithBOM()).Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte(utf8BOM)))
	assert.True(t, strings.HasPrefix(strings.TrimPrefix(string(out), utf8BOM), "Student ID,"))
}

func TestCSVExporterNeutralisesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Remarks", "Balance", "Contact"},
		Rows: []map[string]string{
			{"Remarks": "=HYPERLINK(\"http://x\")", "Balance": "-20.00", "Contact": "+63 912 345 6789"},
			{"Remarks": "@sum"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"'=HYPERLINK(""http://x"")",-20.00,'+63 912 345 6789`, lines[1])
	assert.Equal(t, "'@sum,,", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, map[string]string{"Last Name": strings.Repeat("Verylongsurname", 10)})

	out, err := NewPDFExporter().Render(data, "Student Roster 1234")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterLandscapeForWideTables(t *testing.T) {
	data := Dataset{Headers: []string{"A", "B", "C", "D", "E", "F", "G", "H"}}
	out, err := NewPDFExporter().Render(data, "")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
