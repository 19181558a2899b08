package encoder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	colerrors "github.com/colport/colport/internal/errors"
	"github.com/colport/colport/internal/schema"
	"github.com/colport/colport/pkg/types"
)

func artifactPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "out.cpa")
}

func roundTrip(t *testing.T, rs *types.ResultSet) (*types.ResultSet, types.Schema) {
	t.Helper()

	sch, err := schema.Infer(rs)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	path := artifactPath(t)
	if err := Write(rs, sch, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	back, backSch, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !sch.Equal(backSch) {
		t.Fatalf("schema changed through round trip:\n  wrote %+v\n  read  %+v", sch, backSch)
	}
	return back, backSch
}

func TestRoundTrip_AllKinds(t *testing.T) {
	instant := time.Date(2024, 6, 1, 12, 30, 45, 123456789, time.UTC)
	rs := &types.ResultSet{
		Columns: []string{"b", "i", "f", "s", "ts"},
		Rows: []types.Row{
			{types.Bool(true), types.Int(-42), types.Float(2.5), types.String("hello"), types.Time(instant)},
			{types.Bool(false), types.Int(1 << 60), types.Float(-0.125), types.String(""), types.Time(instant.Add(time.Hour))},
		},
	}

	back, _ := roundTrip(t, rs)

	if back.RowCount() != 2 {
		t.Fatalf("expected 2 rows, got %d", back.RowCount())
	}
	for i, row := range rs.Rows {
		for j := range row {
			if !back.Rows[i][j].Equal(row[j]) {
				t.Errorf("row %d col %d: got %s, want %s", i, j,
					back.Rows[i][j].Format(), row[j].Format())
			}
		}
	}
}

func TestRoundTrip_RowOrderPreserved(t *testing.T) {
	rs := &types.ResultSet{Columns: []string{"seq"}}
	for i := 0; i < 1000; i++ {
		rs.Rows = append(rs.Rows, types.Row{types.Int(int64(i))})
	}

	back, _ := roundTrip(t, rs)

	for i := range rs.Rows {
		if !back.Rows[i][0].Equal(types.Int(int64(i))) {
			t.Fatalf("row %d out of order: got %s", i, back.Rows[i][0].Format())
		}
	}
}

func TestRoundTrip_ZeroRows(t *testing.T) {
	rs := &types.ResultSet{Columns: []string{"id", "name"}}

	back, backSch := roundTrip(t, rs)

	if back.RowCount() != 0 {
		t.Errorf("expected 0 rows, got %d", back.RowCount())
	}
	if len(back.Columns) != 2 || back.Columns[0] != "id" || back.Columns[1] != "name" {
		t.Errorf("column names lost: %v", back.Columns)
	}
	for _, col := range backSch.Columns {
		if col.Type != types.KindString || !col.Nullable {
			t.Errorf("zero-row column %q should be nullable string, got %s", col.Name, col.Type)
		}
	}
}

func TestRoundTrip_IntFloatMixReadsBackAsDoubles(t *testing.T) {
	rs := &types.ResultSet{
		Columns: []string{"v"},
		Rows: []types.Row{
			{types.Int(1)},
			{types.Float(2.5)},
			{types.Int(3)},
		},
	}

	back, backSch := roundTrip(t, rs)

	if backSch.Columns[0].Type != types.KindFloat {
		t.Fatalf("expected float column, got %s", backSch.Columns[0].Type)
	}
	want := []float64{1.0, 2.5, 3.0}
	for i, w := range want {
		v := back.Rows[i][0]
		if v.Kind() != types.KindFloat || v.FloatVal() != w {
			t.Errorf("row %d: got %s, want %v", i, v.Format(), w)
		}
	}
}

func TestRoundTrip_AllNullColumn(t *testing.T) {
	rs := &types.ResultSet{
		Columns: []string{"ghost", "id"},
		Rows: []types.Row{
			{types.Null(), types.Int(1)},
			{types.Null(), types.Int(2)},
			{types.Null(), types.Int(3)},
		},
	}

	back, backSch := roundTrip(t, rs)

	if backSch.Columns[0].Type != types.KindString || !backSch.Columns[0].Nullable {
		t.Errorf("all-null column should be nullable string, got %+v", backSch.Columns[0])
	}
	for i := range back.Rows {
		if !back.Rows[i][0].IsNull() {
			t.Errorf("row %d: expected null, got %s", i, back.Rows[i][0].Format())
		}
	}
}

func TestRoundTrip_StringsPreserveExactBytes(t *testing.T) {
	rs := &types.ResultSet{
		Columns: []string{"s"},
		Rows: []types.Row{
			{types.String("O'Brien; DROP TABLE users--")},
			{types.String("tab\there\nnewline\x00nul")},
			{types.String("ünïcödé 日本語")},
		},
	}

	back, _ := roundTrip(t, rs)

	for i, row := range rs.Rows {
		if !back.Rows[i][0].Equal(row[0]) {
			t.Errorf("row %d: string bytes changed: got %q, want %q",
				i, back.Rows[i][0].StringVal(), row[0].StringVal())
		}
	}
}

func TestWrite_OverwritesExistingFile(t *testing.T) {
	path := artifactPath(t)

	first := &types.ResultSet{Columns: []string{"v"}, Rows: []types.Row{{types.Int(1)}, {types.Int(2)}}}
	second := &types.ResultSet{Columns: []string{"v"}, Rows: []types.Row{{types.Int(9)}}}

	for _, rs := range []*types.ResultSet{first, second} {
		sch, err := schema.Infer(rs)
		if err != nil {
			t.Fatalf("Infer failed: %v", err)
		}
		if err := Write(rs, sch, path); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	back, _, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if back.RowCount() != 1 || !back.Rows[0][0].Equal(types.Int(9)) {
		t.Error("second write did not replace the first artifact")
	}
}

func TestWrite_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.cpa")
	rs := &types.ResultSet{Columns: []string{"v"}, Rows: []types.Row{{types.Int(1)}}}
	sch, err := schema.Infer(rs)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if err := Write(rs, sch, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestWrite_KindMismatchIsDefensiveError(t *testing.T) {
	// Schema claims int but a row holds a string: inference never produces
	// this, so Write must fail instead of corrupting the column.
	rs := &types.ResultSet{
		Columns: []string{"v"},
		Rows:    []types.Row{{types.String("abc")}},
	}
	sch := types.Schema{Columns: []types.ColumnDef{{Name: "v", Type: types.KindInt}}}

	err := Write(rs, sch, artifactPath(t))
	if err == nil {
		t.Fatal("expected kind mismatch error")
	}
	var ce *colerrors.ColportError
	if !errors.As(err, &ce) || ce.Code != colerrors.CodeKindMismatch {
		t.Errorf("expected ENCODING:KIND_MISMATCH, got %v", err)
	}
}

func TestRead_RejectsForeignFile(t *testing.T) {
	path := artifactPath(t)
	if err := os.WriteFile(path, []byte("PK\x03\x04 definitely not colport"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, _, err := Read(path)
	if err == nil {
		t.Fatal("expected error for foreign file")
	}
	if colerrors.GetCode(err) != colerrors.CodeBadMagic {
		t.Errorf("expected BAD_MAGIC, got %s", colerrors.GetCode(err))
	}
}

func TestRead_DetectsCorruptBlock(t *testing.T) {
	path := artifactPath(t)
	rs := &types.ResultSet{
		Columns: []string{"s"},
		Rows:    []types.Row{{types.String("some content that compresses")}},
	}
	sch, err := schema.Infer(rs)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if err := Write(rs, sch, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Flip a byte in the last block
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("rewrite artifact: %v", err)
	}

	_, _, err = Read(path)
	if err == nil {
		t.Fatal("expected checksum error for corrupted block")
	}
	if colerrors.GetCode(err) != colerrors.CodeChecksumMismatch {
		t.Errorf("expected CHECKSUM_MISMATCH, got %s", colerrors.GetCode(err))
	}
}

func TestWrite_IOErrorOnUnwritablePath(t *testing.T) {
	rs := &types.ResultSet{Columns: []string{"v"}, Rows: []types.Row{{types.Int(1)}}}
	sch, err := schema.Infer(rs)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}

	// A path whose parent is a regular file cannot be created
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	err = Write(rs, sch, filepath.Join(blocker, "out.cpa"))
	if err == nil {
		t.Fatal("expected IO error")
	}
	if colerrors.GetCategory(err) != colerrors.ErrCategoryIO {
		t.Errorf("expected IO category, got %s", colerrors.GetCategory(err))
	}
}
