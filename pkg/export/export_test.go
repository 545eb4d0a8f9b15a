package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Title: "Attendance",
		Meta:  [][2]string{{"Course", "CS101"}},
		Data: Dataset{
			Headers: []string{"Student", "Status"},
			Rows: []map[string]string{
				{"Student": "s-1", "Status": "present"},
				{"Student": "s-2"},
			},
		},
		Summary: [][2]string{{"Total", "2"}},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDocument())
	require.NoError(t, err)
	require.Equal(t, "Student,Status\ns-1,present\ns-2,\n", string(out))

	_, err = NewCSVExporter().Render(Document{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDocument())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)

	f, err = ParseFormat("PDF")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	require.Error(t, err)
}
