package metrics

import (
	"sort"
	"strconv"

	"github.com/torosent/exectime/internal/process"
)

// ExitCodeBucket is the number of trials that ended with one exit code.
type ExitCodeBucket struct {
	Code  int   `json:"code" yaml:"code"`
	Count int64 `json:"count" yaml:"count"`
}

// FlattenExitCodes converts an exit-code histogram into rows sorted by
// descending count, then by code for stability.
func FlattenExitCodes(codes map[int]int64) []ExitCodeBucket {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]ExitCodeBucket, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, ExitCodeBucket{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// ExitCodeLabel names an exit code for display.
func ExitCodeLabel(code int) string {
	if code == process.AbnormalExit {
		return "abnormal"
	}
	return strconv.Itoa(code)
}
