package search

import "github.com/kamusis/medclass/internal/catalog"

// Result is one ranked catalog match.
type Result struct {
	Name    string  `json:"name"`
	Code    string  `json:"code"`
	Level   int     `json:"level"`
	Score   float64 `json:"score"` // 0..1
	Purpose string  `json:"purpose"`
	Usage   string  `json:"usage"`
}

func newResult(r catalog.Record, score float64) Result {
	return Result{
		Name:    r.Name,
		Code:    r.Code,
		Level:   r.Level,
		Score:   score,
		Purpose: r.Purpose,
		Usage:   r.Usage,
	}
}
