package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/model"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "leads.csv", []byte("website,name,phone\nacme.com,Acme,555\nbeta.io,Beta,\n"))

	tbl, err := NewStore().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"website", "name", "phone"}, tbl.Header)
	require.Len(t, tbl.Leads, 2)
	assert.Equal(t, "acme.com", tbl.Leads[0].Get("website"))
	assert.Equal(t, "Beta", tbl.Leads[1].Get("name"))
	assert.False(t, tbl.Leads[1].Has("phone"))
}

func TestLoadNotFound(t *testing.T) {
	_, err := NewStore().Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"ragged row", "a,b\n1,2\n3\n"},
		{"duplicate header", "a,a\n1,2\n"},
		{"blank header", "a,,c\n1,2,3\n"},
		{"bare quote", "a,b\n\"1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", []byte(tt.data))
			_, err := NewStore().Load(context.Background(), path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), err.Error())
		})
	}
}

func TestLoadRaggedRowReportsLine(t *testing.T) {
	path := writeFile(t, "bad.csv", []byte("a,b\n1,2\n3\n"))
	_, err := NewStore().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
}

func TestLoadStripsBOM(t *testing.T) {
	path := writeFile(t, "bom.csv", append([]byte{0xEF, 0xBB, 0xBF}, []byte("website\nacme.com\n")...))
	tbl, err := NewStore().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"website"}, tbl.Header)
}

func TestLoadLatin1Fallback(t *testing.T) {
	// "Café" in ISO-8859-1.
	data := []byte("name\nCaf\xe9\n")
	path := writeFile(t, "latin1.csv", data)

	tbl, err := NewStore().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tbl.Leads, 1)
	assert.Equal(t, "Café", tbl.Leads[0].Get("name"))
}

func TestLoadXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, data := range [][]string{
		{"Website", "Name", "Phone"},
		{"acme.com", "Acme"},
		{"", "", ""},
		{"beta.io", "Beta", "555"},
	} {
		row := sheet.AddRow()
		for _, v := range data {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "raw.xlsx")
	require.NoError(t, f.Save(path))

	tbl, err := NewStore().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Website", "Name", "Phone"}, tbl.Header)
	require.Len(t, tbl.Leads, 2)
	assert.Equal(t, "", tbl.Leads[0].Get("Phone"))
	assert.Equal(t, "555", tbl.Leads[1].Get("Phone"))
}

func TestTableRequire(t *testing.T) {
	tbl := &Table{Header: []string{"lead_id", "domain"}}
	assert.NoError(t, tbl.Require("lead_id"))

	err := tbl.Require("lead_id", "score", "priority")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.Contains(t, err.Error(), "score, priority")
}

func TestMissingColumns(t *testing.T) {
	header := []string{"lead_id", "domain"}
	assert.Empty(t, MissingColumns(header, "domain"))
	assert.Equal(t, []string{"score", "email"}, MissingColumns(header, "score", "lead_id", "email"))
	assert.Equal(t, []string{"domain"}, MissingColumns(nil, "domain"))
}

func TestSaveRoundTripPreservesColumnSuperset(t *testing.T) {
	store := NewStore()
	in := writeFile(t, "in.csv", []byte("website,extra\nacme.com,keep-me\nbeta.io,x\n"))

	tbl, err := store.Load(context.Background(), in)
	require.NoError(t, err)
	tbl.Leads[0].Set("score", "72")
	tbl.Leads[1].Set("priority", "warm")

	out := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, store.Save(context.Background(), out, tbl.Header, tbl.Leads))

	got, err := store.Load(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, []string{"website", "extra", "score", "priority"}, got.Header)
	assert.Equal(t, "keep-me", got.Leads[0].Get("extra"))
	assert.Equal(t, "72", got.Leads[0].Get("score"))
	assert.Equal(t, "", got.Leads[0].Get("priority"))
	assert.Equal(t, "warm", got.Leads[1].Get("priority"))
}

func TestSaveIsByteStable(t *testing.T) {
	store := NewStore()
	l := model.NewLead()
	l.Set("a", "1, with comma")
	l.Set("b", "\"quoted\"")

	dir := t.TempDir()
	p1 := filepath.Join(dir, "one.csv")
	p2 := filepath.Join(dir, "two.csv")
	require.NoError(t, store.Save(context.Background(), p1, nil, []*model.Lead{l}))
	require.NoError(t, store.Save(context.Background(), p2, nil, []*model.Lead{l}))

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, NewStore().Save(context.Background(), out, []string{"a"}, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestSaveFailures(t *testing.T) {
	store := NewStore()
	dir := t.TempDir()
	path := filepath.Join(dir, "out_failed.csv")

	l := model.LeadFromRow([]string{"website"}, []string{"not a site"})
	failures := []model.Failure{{Lead: l, Stage: "clean", Reason: model.ReasonInvalid, Detail: "no domain"}}
	require.NoError(t, store.SaveFailures(context.Background(), path, []string{"website"}, failures))

	got, err := store.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"website", "failure_stage", "failure_reason", "failure_detail"}, got.Header)
	assert.Equal(t, "INVALID", got.Leads[0].Get(model.FieldFailureReason))
	// The caller's lead is not mutated.
	assert.False(t, l.HasColumn(model.FieldFailureReason))

	require.NoError(t, store.SaveFailures(context.Background(), path, nil, nil))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFailedPath(t *testing.T) {
	assert.Equal(t, "data/leads_scored_failed.csv", FailedPath("data/leads_scored.csv"))
	assert.Equal(t, "x_failed.csv", FailedPath("x"))
}
