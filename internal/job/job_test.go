package job

import (
	"testing"
	"time"
)

func jobFixture() *CronJob {
	next := time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)
	maxRuns := 5
	return &CronJob{
		ID:        "j1",
		Name:      "backup",
		Schedule:  "0 9 * * *",
		Timezone:  "UTC",
		Status:    StatusActive,
		CreatedAt: time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC),
		NextRunAt: &next,
		MaxRuns:   &maxRuns,
		Payload: Payload{
			Action: "run_backup",
			Parameters: map[string]any{
				"target": "db",
				"nested": map[string]any{"depth": 2},
				"list":   []any{"a", "b"},
			},
		},
		Tags: []string{"infra", "nightly"},
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()
	orig := jobFixture()
	cp := orig.Clone()

	cp.Name = "changed"
	*cp.NextRunAt = cp.NextRunAt.Add(time.Hour)
	*cp.MaxRuns = 99
	cp.Tags[0] = "mutated"
	cp.Payload.Parameters["target"] = "other"
	cp.Payload.Parameters["nested"].(map[string]any)["depth"] = 99
	cp.Payload.Parameters["list"].([]any)[0] = "z"

	if orig.Name != "backup" {
		t.Fatal("clone aliased Name")
	}
	if !orig.NextRunAt.Equal(time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)) {
		t.Fatal("clone aliased NextRunAt")
	}
	if *orig.MaxRuns != 5 {
		t.Fatal("clone aliased MaxRuns")
	}
	if orig.Tags[0] != "infra" {
		t.Fatal("clone aliased Tags")
	}
	if orig.Payload.Parameters["target"] != "db" {
		t.Fatal("clone aliased Parameters")
	}
	if orig.Payload.Parameters["nested"].(map[string]any)["depth"] != 2 {
		t.Fatal("clone aliased nested map")
	}
	if orig.Payload.Parameters["list"].([]any)[0] != "a" {
		t.Fatal("clone aliased nested slice")
	}
}

func TestCloneNil(t *testing.T) {
	t.Parallel()
	var j *CronJob
	if j.Clone() != nil {
		t.Fatal("nil clone should stay nil")
	}
}

func TestDue(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)

	j := jobFixture()
	if !j.Due(now) {
		t.Fatal("active job at its next-run instant should be due")
	}
	if j.Due(now.Add(-time.Second)) {
		t.Fatal("job before next-run should not be due")
	}

	j.Status = StatusPaused
	if j.Due(now) {
		t.Fatal("paused job should never be due")
	}

	j = jobFixture()
	j.NextRunAt = nil
	if j.Due(now) {
		t.Fatal("job without next-run should not be due")
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "trims and drops empties", in: []string{" a ", "", "  "}, want: []string{"a"}},
		{name: "dedupes keeping order", in: []string{"b", "a", "b ", "a"}, want: []string{"b", "a"}},
		{name: "all empty", in: []string{"", " "}, want: nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("NormalizeTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("NormalizeTags(%v) = %v, want %v", tt.in, got, tt.want)
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	ok := jobFixture()
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid job rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*CronJob)
		field  string
	}{
		{name: "empty name", mutate: func(j *CronJob) { j.Name = "  " }, field: "name"},
		{name: "empty action", mutate: func(j *CronJob) { j.Payload.Action = "" }, field: "payload.action"},
		{name: "zero max runs", mutate: func(j *CronJob) { v := 0; j.MaxRuns = &v }, field: "maxRuns"},
		{name: "negative max runs", mutate: func(j *CronJob) { v := -3; j.MaxRuns = &v }, field: "maxRuns"},
		{name: "bad status", mutate: func(j *CronJob) { j.Status = "sleeping" }, field: "status"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			j := jobFixture()
			tt.mutate(j)
			err := j.Validate()
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}
