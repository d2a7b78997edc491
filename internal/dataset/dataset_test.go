// internal/dataset/dataset_test.go
package dataset

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Fixture(t *testing.T) {
	records, err := Load(filepath.Join("testdata", "users.csv"), nil)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "standard_user", records[0].Get("username"))
	assert.Equal(t, "secret_sauce", records[0].Get("password"))

	failures, err := Load(filepath.Join("testdata", "users.csv"), Where("expected", "FAILURE"))
	require.NoError(t, err)
	want := []Record{
		{"username": "locked_out_user", "password": "secret_sauce", "expected": "failure"},
		{"username": "invalid_username", "password": "wrong_password", "expected": "failure"},
	}
	if diff := cmp.Diff(want, failures); diff != "" {
		t.Errorf("filtered records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("", nil)
	assert.ErrorIs(t, err, ErrMissingDataFile)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open data file")
}

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Record
		wantErr error
	}{
		{
			name:  "ShortRowPadded",
			input: "username,password\nalice\n",
			want:  []Record{{"username": "alice", "password": ""}},
		},
		{
			name:  "CommentsAndQuotes",
			input: "# fixture\nusername, password\n\"bob, jr\", \"p,w\"\n",
			want:  []Record{{"username": "bob, jr", "password": "p,w"}},
		},
		{
			name:  "ByteOrderMark",
			input: "\ufeffusername,password\ncarol,x\n",
			want:  []Record{{"username": "carol", "password": "x"}},
		},
		{
			name:  "HeaderOnly",
			input: "username,password\n",
			want:  []Record{},
		},
		{name: "Empty", input: "", wantErr: ErrNoHeader},
		{name: "BlankColumn", input: "username,,password\n", wantErr: ErrInvalidHeader},
		{name: "DuplicateColumn", input: "a,b,a\n", wantErr: ErrInvalidHeader},
		{name: "TooManyFields", input: "a,b\n1,2,3\n", wantErr: ErrTooManyFields},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.input), nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRead_MalformedQuote(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\n\"unterminated,2\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read row")
}

// FuzzRead round-trips generated tables through the CSV writer and checks
// every data cell comes back under its column.
func FuzzRead(f *testing.F) {
	f.Add([]byte("seed"))
	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		var cells [][]string
		if err := c.GenerateStruct(&cells); err != nil || len(cells) == 0 {
			return
		}

		width := len(cells[0])
		header := make([]string, width)
		for i := range header {
			header[i] = "col" + strings.Repeat("x", i)
		}
		if width == 0 {
			return
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		require.NoError(t, w.Write(header))
		var rows [][]string
		for _, row := range cells {
			if len(row) != width || isSkippedLine(row) {
				continue
			}
			rows = append(rows, row)
			require.NoError(t, w.Write(row))
		}
		w.Flush()
		require.NoError(t, w.Error())

		got, err := Read(&buf, nil)
		if err != nil {
			return
		}
		require.Len(t, got, len(rows))
		for i, rec := range got {
			require.Len(t, rec, width)
			for j, col := range header {
				if strings.TrimLeft(rows[i][j], " \t") != rows[i][j] {
					continue
				}
				assert.Equal(t, strings.ReplaceAll(rows[i][j], "\r\n", "\n"), rec[col])
			}
		}
	})
}

// isSkippedLine reports rows the reader drops on its own: blank lines and
// comment lines.
func isSkippedLine(row []string) bool {
	if len(row) == 1 && row[0] == "" {
		return true
	}
	return len(row) > 0 && strings.HasPrefix(row[0], "#")
}
