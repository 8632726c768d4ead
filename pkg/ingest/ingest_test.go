package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ingestString(t *testing.T, content, filename string, limits Limits) (*Dataset, error) {
	t.Helper()
	return Ingest(context.Background(), []byte(content), filename, limits)
}

func TestIngest_CSV(t *testing.T) {
	ds, err := ingestString(t, "x,y,z\n1,2,3\n4,5,6\n7,8,9\n", "points.csv", DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y", "z"}, ds.Columns)
	assert.Equal(t, 3, ds.RowCount)
	assert.Len(t, ds.Records, 3)
	assert.Equal(t, Record{"x": "1", "y": "2", "z": "3"}, ds.Records[0], "values stay raw strings")
	assert.Equal(t, ds.Records[:3], ds.Preview)
	assert.Equal(t, FormatCSV, ds.DeclaredFormat)
	assert.Equal(t, "text/csv", ds.MIMEType)
	assert.Equal(t, "points.csv", ds.OriginalName)
	assert.NotEmpty(t, ds.Identifier)
}

func TestIngest_CSVTrimsWhitespaceAndSkipsBlankLines(t *testing.T) {
	ds, err := ingestString(t, " name , value \na, 1\n\n  ,  \nb ,2\n", "data.CSV", DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "value"}, ds.Columns)
	assert.Equal(t, 2, ds.RowCount)
	assert.Equal(t, Record{"name": "a", "value": "1"}, ds.Records[0])
	assert.Equal(t, Record{"name": "b", "value": "2"}, ds.Records[1])
}

func TestIngest_CSVRaggedRowsFoldExtraColumns(t *testing.T) {
	ds, err := ingestString(t, "a,b\n1,2\n3,4,5\n", "ragged.csv", DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "column_3"}, ds.Columns)
	assert.Equal(t, 2, ds.RowCount)
	assert.Equal(t, Record{"a": "3", "b": "4", "column_3": "5"}, ds.Records[1])
	_, ok := ds.Records[0]["column_3"]
	assert.False(t, ok, "short rows do not gain the folded column")
}

func TestIngest_CSVPreviewBounded(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}
	ds, err := ingestString(t, sb.String(), "many.csv", DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 20, ds.RowCount)
	assert.Len(t, ds.Preview, PreviewRows)
	assert.Equal(t, ds.Records[:PreviewRows], ds.Preview)
}

func TestIngest_CSVRowLimitAbortsWholeParse(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i <= 100; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	ds, err := ingestString(t, sb.String(), "big.csv", Limits{MaxRows: 100})
	require.ErrorIs(t, err, ErrRowLimitExceeded)
	assert.Nil(t, ds, "no truncated dataset is returned")
}

func TestIngest_JSONArray(t *testing.T) {
	ds, err := ingestString(t, `[{"a":1},{"a":2}]`, "data.json", DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, ds.Columns)
	assert.Equal(t, 2, ds.RowCount)
	assert.Equal(t, "application/json", ds.MIMEType)
}

func TestIngest_JSONObjectWrapped(t *testing.T) {
	ds, err := ingestString(t, `{"a":1,"b":"two"}`, "single.json", DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 1, ds.RowCount)
	assert.Equal(t, []string{"a", "b"}, ds.Columns)
}

func TestIngest_JSONColumnOrderIsDocumentOrder(t *testing.T) {
	// Keys deliberately in non-lexicographic order; a plain map round-trip
	// would lose it.
	ds, err := ingestString(t, `[{"zeta":1,"alpha":2,"mid":3}]`, "order.json", DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, ds.Columns)
}

func TestIngest_JSONSkipsNonObjectElements(t *testing.T) {
	ds, err := ingestString(t, `[1, "x", {"a":1}, null, {"b":2}]`, "mixed.json", DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 2, ds.RowCount)
	assert.Equal(t, []string{"a"}, ds.Columns, "columns come from the first object element")
}

func TestIngest_JSONNoObjectsFails(t *testing.T) {
	_, err := ingestString(t, `[1,2,3]`, "nums.json", DefaultLimits())
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestIngest_JSONSyntaxErrorFails(t *testing.T) {
	_, err := ingestString(t, `[{"a":1},`, "broken.json", DefaultLimits())
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, FormatJSON, parseErr.Format)
}

func TestIngest_JSONRowLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < 11; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"n":%d}`, i)
	}
	sb.WriteString("]")

	_, err := ingestString(t, sb.String(), "big.json", Limits{MaxRows: 10})
	require.ErrorIs(t, err, ErrRowLimitExceeded)
}

func TestIngest_JSONRowLimitCountsRecordsNotElements(t *testing.T) {
	// Skipped non-object elements don't count against the row limit: four
	// elements, two records, limit two.
	ds, err := ingestString(t, `[1, {"a":1}, "x", {"a":2}]`, "mixed.json", Limits{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.RowCount)

	_, err = ingestString(t, `[1, {"a":1}, {"a":2}, {"a":3}]`, "mixed.json", Limits{MaxRows: 2})
	require.ErrorIs(t, err, ErrRowLimitExceeded)
}

func TestIngest_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		filename string
		limits   Limits
		want     error
	}{
		{"empty file", "", "data.csv", DefaultLimits(), ErrUnsupportedFormat},
		{"unsupported extension", "a,b\n1,2\n", "data.txt", DefaultLimits(), ErrUnsupportedFormat},
		{"no extension", "a,b\n1,2\n", "data", DefaultLimits(), ErrUnsupportedFormat},
		{"file too large", "a,b\n1,2\n", "data.csv", Limits{MaxBytes: 4}, ErrFileTooLarge},
		{"header only csv", "a,b\n", "data.csv", DefaultLimits(), ErrEmptyDataset},
		{"empty json array", "[]", "data.json", DefaultLimits(), nil}, // ParseError, checked below
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingestString(t, tt.content, tt.filename, tt.limits)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestIngest_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	_, err := Ingest(ctx, []byte(sb.String()), "data.csv", DefaultLimits())
	require.ErrorIs(t, err, context.Canceled)
}

func TestIngest_ConcurrentCallsAreIndependent(t *testing.T) {
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			ds, err := ingestString(t, fmt.Sprintf("v\n%d\n", i), "p.csv", DefaultLimits())
			if err == nil && ds.RowCount != 1 {
				err = errors.New("unexpected row count")
			}
			done <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}

func TestNewIdentifier(t *testing.T) {
	a := NewIdentifier("my data (v2).csv")
	b := NewIdentifier("my data (v2).csv")

	assert.NotEqual(t, a, b, "identifiers are collision-safe")
	assert.Contains(t, a, "my_data__v2")
	assert.NotContains(t, a, " ")
	assert.NotContains(t, a, "(")

	assert.Contains(t, NewIdentifier("...."), "upload", "unusable names fall back")
}

func TestLimitsWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultLimits(), Limits{}.WithDefaults())
	assert.Equal(t, DefaultLimits(), Limits{MaxBytes: -1, MaxRows: -1}.WithDefaults())

	custom := Limits{MaxBytes: 1024, MaxRows: 10}
	assert.Equal(t, custom, custom.WithDefaults())

	partial := Limits{MaxRows: 10}.WithDefaults()
	assert.Equal(t, DefaultMaxBytes, partial.MaxBytes)
	assert.Equal(t, 10, partial.MaxRows)
}
