package server

import (
	"math"

	"github.com/matzehuels/tokenforge/pkg/report"
)

type reportResponse struct {
	Total              int                 `json:"total"`
	Traits             []traitResponse     `json:"traits"`
	ConstraintsChecked bool                `json:"constraints_checked"`
	Violations         int                 `json:"violations"`
	Examples           []violationResponse `json:"examples,omitempty"`
	LabelCollisions    []report.Collision  `json:"label_collisions,omitempty"`
}

type traitResponse struct {
	TraitType string          `json:"trait_type"`
	Values    []valueResponse `json:"values"`
	ChiSquare *float64        `json:"chi_square,omitempty"`
	PValue    *float64        `json:"p_value,omitempty"`
}

type valueResponse struct {
	Value    string  `json:"value"`
	Count    int     `json:"count"`
	Share    float64 `json:"share"`
	Expected float64 `json:"expected,omitempty"`
}

type violationResponse struct {
	Edition int    `json:"edition"`
	Pair    string `json:"pair"`
}

// newReportResponse converts a report to its JSON shape. NaN statistics are
// omitted since JSON cannot represent them.
func newReportResponse(r *report.Report) reportResponse {
	resp := reportResponse{
		Total:              r.Total,
		Traits:             make([]traitResponse, 0, len(r.Traits)),
		ConstraintsChecked: r.ConstraintsChecked,
		Violations:         r.Violations,
		LabelCollisions:    r.LabelCollisions,
	}
	for _, ts := range r.Traits {
		tr := traitResponse{TraitType: ts.TraitType}
		for _, v := range ts.Values {
			tr.Values = append(tr.Values, valueResponse{
				Value:    v.Value,
				Count:    v.Count,
				Share:    v.Share,
				Expected: v.Expected,
			})
		}
		if ts.Fit != nil && !math.IsNaN(ts.Fit.PValue) {
			chi, p := ts.Fit.ChiSquare, ts.Fit.PValue
			tr.ChiSquare, tr.PValue = &chi, &p
		}
		resp.Traits = append(resp.Traits, tr)
	}
	for _, v := range r.Examples {
		resp.Examples = append(resp.Examples, violationResponse{Edition: v.Edition, Pair: v.Pair.String()})
	}
	return resp
}
