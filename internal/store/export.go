package store

import (
	"encoding/json"
	"os"

	"github.com/kstrom/odebridge/internal/config"
	"github.com/kstrom/odebridge/internal/driver"
)

type ExportData struct {
	Problem  string      `json:"problem"`
	Family   string      `json:"family"`
	Method   string      `json:"method"`
	RelTol   float64     `json:"rel_tol"`
	AbsTol   float64     `json:"abs_tol"`
	Duration float64     `json:"duration"`
	Steps    int         `json:"steps"`
	RHSEvals int         `json:"rhs_evals"`
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
}

// ExportJSON writes a full run, trajectory included, to a single file.
func ExportJSON(path string, cfg *config.Config, result *driver.Result) error {
	data := ExportData{
		Problem:  cfg.Problem,
		Family:   cfg.Family,
		Method:   cfg.Method,
		RelTol:   cfg.RelTol,
		AbsTol:   cfg.AbsTol,
		Duration: cfg.Duration,
		Steps:    result.Stats.Steps,
		RHSEvals: result.Stats.RHSEvals,
		Times:    result.Times,
		States:   result.States,
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
