package metrics

import (
	"reflect"
	"testing"

	"github.com/torosent/exectime/internal/process"
)

func TestFlattenExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		codes map[int]int64
		want  []ExitCodeBucket
	}{
		{
			name:  "nil codes",
			codes: nil,
			want:  nil,
		},
		{
			name:  "single code",
			codes: map[int]int64{0: 10},
			want:  []ExitCodeBucket{{Code: 0, Count: 10}},
		},
		{
			name:  "sorted by count desc",
			codes: map[int]int64{0: 2, 1: 7, -1: 3},
			want: []ExitCodeBucket{
				{Code: 1, Count: 7},
				{Code: -1, Count: 3},
				{Code: 0, Count: 2},
			},
		},
		{
			name:  "ties broken by code",
			codes: map[int]int64{3: 1, 2: 1, -1: 1},
			want: []ExitCodeBucket{
				{Code: -1, Count: 1},
				{Code: 2, Count: 1},
				{Code: 3, Count: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenExitCodes(tt.codes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenExitCodes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCodeLabel(t *testing.T) {
	if got := ExitCodeLabel(process.AbnormalExit); got != "abnormal" {
		t.Errorf("ExitCodeLabel(%d) = %q", process.AbnormalExit, got)
	}
	if got := ExitCodeLabel(42); got != "42" {
		t.Errorf("ExitCodeLabel(42) = %q", got)
	}
}
