package metrics

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// ModelUsage aggregates what this process observed for one model.
type ModelUsage struct {
	Model          string  `json:"model"`
	Requests       uint64  `json:"requests"`
	Errors         uint64  `json:"errors"`
	LatencySeconds float64 `json:"latencySecondsTotal"`
	InputTokens    float64 `json:"inputTokens"`
	OutputTokens   float64 `json:"outputTokens"`
	TotalTokens    float64 `json:"totalTokens"`
}

// AverageLatency is the mean turn latency in seconds, 0 without samples.
func (u ModelUsage) AverageLatency() float64 {
	if u.Requests == 0 {
		return 0
	}
	return u.LatencySeconds / float64(u.Requests)
}

// Usage is a point-in-time read of the LLM families.
type Usage struct {
	Models          []ModelUsage       `json:"models"`
	ToolCalls       float64            `json:"toolCalls"`
	Inbound         float64            `json:"inbound"`
	InboundByStatus map[string]float64 `json:"inboundByStatus"`
}

// Model returns the row for id, zero-valued if the model was never called.
func (u Usage) Model(id string) ModelUsage {
	for _, m := range u.Models {
		if m.Model == id {
			return m
		}
	}
	return ModelUsage{Model: id}
}

// Totals sums every model row.
func (u Usage) Totals() ModelUsage {
	var out ModelUsage
	for _, m := range u.Models {
		out.Requests += m.Requests
		out.Errors += m.Errors
		out.LatencySeconds += m.LatencySeconds
		out.InputTokens += m.InputTokens
		out.OutputTokens += m.OutputTokens
		out.TotalTokens += m.TotalTokens
	}
	return out
}

// Snapshot reads the LLM and webhook families from g. Families that were
// never registered or observed read as zero.
func Snapshot(g prometheus.Gatherer) (Usage, error) {
	usage := Usage{InboundByStatus: map[string]float64{}}
	if g == nil {
		return usage, nil
	}
	families, err := g.Gather()
	if err != nil {
		return usage, fmt.Errorf("metrics: gather: %w", err)
	}

	byModel := map[string]*ModelUsage{}
	row := func(model string) *ModelUsage {
		if m, ok := byModel[model]; ok {
			return m
		}
		m := &ModelUsage{Model: model}
		byModel[model] = m
		return m
	}

	for _, mf := range families {
		switch mf.GetName() {
		case LLMLatencyFamily:
			for _, m := range mf.GetMetric() {
				r := row(label(m, "model"))
				h := m.GetHistogram()
				r.Requests += h.GetSampleCount()
				r.LatencySeconds += h.GetSampleSum()
				if label(m, "status") == "error" {
					r.Errors += h.GetSampleCount()
				}
			}
		case LLMTokensFamily:
			for _, m := range mf.GetMetric() {
				r := row(label(m, "model"))
				v := m.GetCounter().GetValue()
				switch label(m, "type") {
				case "input":
					r.InputTokens += v
				case "output":
					r.OutputTokens += v
				case "total":
					r.TotalTokens += v
				}
			}
		case ToolCallsFamily:
			for _, m := range mf.GetMetric() {
				usage.ToolCalls += m.GetCounter().GetValue()
			}
		case InboundFamily:
			for _, m := range mf.GetMetric() {
				v := m.GetCounter().GetValue()
				usage.Inbound += v
				usage.InboundByStatus[label(m, "status")] += v
			}
		}
	}

	for _, m := range byModel {
		usage.Models = append(usage.Models, *m)
	}
	sort.Slice(usage.Models, func(i, j int) bool { return usage.Models[i].Model < usage.Models[j].Model })
	return usage, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
