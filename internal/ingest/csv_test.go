package ingest

import (
	"errors"
	"strings"
	"testing"
)

func TestReadPositionfixesCSV(t *testing.T) {
	input := strings.Join([]string{
		"user_id,tracked_at,latitude,longitude,elevation,accuracy",
		"1,2024-05-01T08:00:00Z,47.3769,8.5417,410.5,12",
		"1,2024-05-01T08:01:00Z,47.3771,8.5420,,",
		"2,2024-05-01T09:00:00+02:00,46.9480,7.4474,540,",
	}, "\n")

	pfs, err := ReadPositionfixesCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadPositionfixesCSV: %v", err)
	}
	if len(pfs) != 3 {
		t.Fatalf("got %d positionfixes, want 3", len(pfs))
	}

	if pfs[0].UserID != 1 || pfs[0].Latitude != 47.3769 {
		t.Errorf("first fix parsed wrong: %+v", pfs[0])
	}
	if pfs[0].Elevation == nil || *pfs[0].Elevation != 410.5 {
		t.Errorf("elevation not parsed: %+v", pfs[0].Elevation)
	}
	if pfs[1].Elevation != nil || pfs[1].Accuracy != nil {
		t.Errorf("empty optional fields should stay nil: %+v", pfs[1])
	}
	if _, offset := pfs[2].TrackedAt.Zone(); offset != 2*3600 {
		t.Errorf("timezone offset not preserved: got %d", offset)
	}
}

func TestReadPositionfixesCSVColumnOrder(t *testing.T) {
	input := "latitude,longitude,user_id,tracked_at\n47.0,8.0,5,2024-05-01T08:00:00Z\n"

	pfs, err := ReadPositionfixesCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadPositionfixesCSV: %v", err)
	}
	if pfs[0].UserID != 5 || pfs[0].Latitude != 47.0 {
		t.Errorf("column order not respected: %+v", pfs[0])
	}
}

func TestReadPositionfixesCSVRejectsBadRows(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"missing column", "user_id,tracked_at,latitude\n1,2024-05-01T08:00:00Z,47.0\n"},
		{"naive timestamp", "user_id,tracked_at,latitude,longitude\n1,2024-05-01 08:00:00,47.0,8.0\n"},
		{"latitude out of range", "user_id,tracked_at,latitude,longitude\n1,2024-05-01T08:00:00Z,91.0,8.0\n"},
		{"bad user id", "user_id,tracked_at,latitude,longitude\nx,2024-05-01T08:00:00Z,47.0,8.0\n"},
		{"empty input", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadPositionfixesCSV(strings.NewReader(tc.input))
			if !errors.Is(err, ErrBadRecord) {
				t.Fatalf("got err %v, want ErrBadRecord", err)
			}
		})
	}
}
