package frame

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/services"
)

type recordingGuard struct {
	ops []models.GovernedOperation
}

func (g *recordingGuard) Deny(op models.GovernedOperation, target string) error {
	g.ops = append(g.ops, op)
	return services.NewExportDenied(string(op), target)
}

func sampleFrame(t *testing.T, guard models.ExportGuard) *Frame {
	t.Helper()
	f, err := New(guard, []string{"id", "city", "amount"}, [][]any{
		{int64(1), "Tehran", 10.5},
		{int64(2), "Shiraz", int64(4)},
		{int64(3), "Tabriz", "1.5"},
	})
	require.NoError(t, err)
	return f
}

func TestFromRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "segment"}).
			AddRow(1, []byte("retail")).
			AddRow(2, nil))

	rows, err := db.Query("SELECT id, segment FROM customers_anonymized")
	require.NoError(t, err)
	defer rows.Close()

	f, err := FromRows(rows, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "segment"}, f.Columns())
	assert.Equal(t, 2, f.Len())
	segment, err := f.Column("segment")
	require.NoError(t, err)
	if diff := cmp.Diff([]any{"retail", nil}, segment); diff != "" {
		t.Errorf("segment column mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_RowWidthMismatch(t *testing.T) {
	_, err := New(nil, []string{"a", "b"}, [][]any{{1}})
	assert.Error(t, err)
}

func TestFrame_ReadOperations(t *testing.T) {
	f := sampleFrame(t, nil)

	if diff := cmp.Diff([]any{int64(2), "Shiraz", int64(4)}, f.Row(1)); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	_, err := f.Column("missing")
	assert.Error(t, err)

	head := f.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, 3, f.Head(10).Len())
	assert.Equal(t, 0, f.Head(-1).Len())
}

func TestFrame_Floats(t *testing.T) {
	guard := &recordingGuard{}
	f := sampleFrame(t, guard)

	arr, err := f.Floats("amount")
	require.NoError(t, err)
	assert.Equal(t, []float64{10.5, 4, 1.5}, arr.Values())

	// arrays derived from a frame keep its guard
	require.Error(t, arr.Save("x.npy"))
	assert.Equal(t, []models.GovernedOperation{models.OperationNumericSave}, guard.ops)

	_, err = f.Floats("city")
	assert.Error(t, err)
}

func TestFrame_String(t *testing.T) {
	out := sampleFrame(t, nil).String()

	assert.True(t, strings.HasPrefix(out, "id"))
	assert.Contains(t, out, "Tehran")
	assert.Contains(t, out, "[3 rows x 3 columns]")
}

func TestFrame_SerializersDenied(t *testing.T) {
	guard := &recordingGuard{}
	f := sampleFrame(t, guard)

	calls := []struct {
		name string
		op   models.GovernedOperation
		call func() error
	}{
		{"csv", models.OperationSerializeCSV, func() error { return f.ToCSV("out.csv") }},
		{"csv no path", models.OperationSerializeCSV, func() error { return f.ToCSV("") }},
		{"excel", models.OperationSerializeExcel, func() error { return f.ToExcel("out.txt") }},
		{"json", models.OperationSerializeJSON, func() error { return f.ToJSON("/dev/stdout") }},
		{"parquet", models.OperationSerializeParquet, func() error { return f.ToParquet("p") }},
		{"pickle", models.OperationSerializePickle, func() error { return f.ToPickle("p.pkl") }},
	}

	for _, c := range calls {
		t.Run(c.name, func(t *testing.T) {
			err := c.call()
			require.Error(t, err)
			assert.True(t, services.IsExportDeniedError(err))
			assert.Equal(t, string(c.op), services.GetErrorDetails(err)["operation"])
		})
	}
	assert.Len(t, guard.ops, len(calls))
}

func TestFrame_MarshalJSONDenied(t *testing.T) {
	f := sampleFrame(t, nil)

	_, err := json.Marshal(f)

	require.Error(t, err)
	assert.True(t, services.IsExportDeniedError(err))
}
