package server

import (
	"github.com/derktes/ir-signal-workbench/analyzer"
	"github.com/derktes/ir-signal-workbench/capture"
	"github.com/derktes/ir-signal-workbench/irsignal"
)

const (
	opImport = "import"
	opRemove = "remove"
	opEdit   = "edit"
	opAdd    = "add"
	opMove   = "move"
	opDelete = "delete"
	opFrame  = "frame"
)

type tableEvent struct {
	TableID string                `json:"tableId"`
	Op      string                `json:"op"`
	Rows    []int                 `json:"rows,omitempty"`
	Frame   *capture.DecodedFrame `json:"frame,omitempty"`
}

type tableSummary struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"`
	Format       string  `json:"format"`
	Kind         string  `json:"kind"`
	Rows         int     `json:"rows"`
	Frequency    float64 `json:"frequency,omitempty"`
	HasFrequency bool    `json:"hasFrequency"`
	Created      string  `json:"created"`
}

type columnResponse struct {
	Label    string `json:"label"`
	Width    int    `json:"width"`
	Type     string `json:"type"`
	Editable bool   `json:"editable"`
}

type rowResponse struct {
	Index int      `json:"index"`
	Cells []string `json:"cells"`
}

type tableResponse struct {
	tableSummary
	Columns []columnResponse `json:"columns"`
	Rows    []rowResponse    `json:"rowData"`
	Skipped []string         `json:"skipped,omitempty"`
}

type editRequest struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Value  string `json:"value"`
}

type addRequest struct {
	Name string `json:"name"`
}

type moveRequest struct {
	Row       int    `json:"row"`
	To        *int   `json:"to,omitempty"`
	Direction string `json:"direction,omitempty"`
}

type normalizeRequest struct {
	Column int    `json:"column"`
	Text   string `json:"text"`
}

type cellResponse struct {
	Row  int    `json:"row"`
	Text string `json:"text"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Attempts []string `json:"attempts,omitempty"`
}

type decodeResponse struct {
	Protocol          string               `json:"protocol"`
	Parameters        []analyzer.Parameter `json:"parameters"`
	Value             string               `json:"value"`
	Text              string               `json:"text"`
	TextWithConstants string               `json:"textWithConstants"`
}

type analysisResponse struct {
	Name         string            `json:"name"`
	Cleaned      irsignal.Sequence `json:"cleaned"`
	Timings      string            `json:"timings"`
	RepeatFinder string            `json:"repeatFinder,omitempty"`
	Match        *decodeResponse   `json:"match"`
}

type clusterResponse struct {
	Letter string  `json:"letter"`
	Mean   float64 `json:"mean"`
	Count  int     `json:"count"`
	Units  string  `json:"units"`
}

type reportResponse struct {
	Frequency float64            `json:"frequency"`
	TimeBase  float64            `json:"timeBase"`
	Clusters  []clusterResponse  `json:"clusters"`
	Analyses  []analysisResponse `json:"analyses"`
	BitUsage  map[string]string  `json:"bitUsage"`
}

func newReportResponse(r *analyzer.Report) reportResponse {
	resp := reportResponse{
		Frequency: r.Frequency,
		TimeBase:  r.TimeBase,
		Clusters:  make([]clusterResponse, len(r.Clusters)),
		Analyses:  make([]analysisResponse, len(r.Analyses)),
		BitUsage:  make(map[string]string, len(r.BitUsage)),
	}
	for i, c := range r.Clusters {
		resp.Clusters[i] = clusterResponse{c.Letter, c.Mean, c.Count, c.Units}
	}
	for i, a := range r.Analyses {
		ar := analysisResponse{Name: a.Name, Cleaned: a.Cleaned, Timings: a.Timings}
		if a.RepeatFinder != nil {
			ar.RepeatFinder = a.RepeatFinder.String()
		}
		if !a.NoMatch() {
			ar.Match = &decodeResponse{
				Protocol:          a.Match.Protocol,
				Parameters:        a.Match.Parameters,
				Value:             a.Match.Value,
				Text:              a.Match.Text,
				TextWithConstants: a.Match.TextWithConstants,
			}
		}
		resp.Analyses[i] = ar
	}
	for name, counts := range r.BitUsage {
		resp.BitUsage[name] = analyzer.BitUsageString(counts)
	}
	return resp
}
