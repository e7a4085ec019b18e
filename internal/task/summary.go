package task

import (
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ConditionSummary aggregates the probe trials of one condition.
// RT statistics cover correct responses only and are in milliseconds.
type ConditionSummary struct {
	Condition Condition `json:"condition"`
	Trials    int       `json:"trials"`
	Correct   int       `json:"correct"`
	Omissions int       `json:"omissions"`
	Accuracy  float64   `json:"accuracy"`
	MeanRT    float64   `json:"mean_rt"`
	MedianRT  float64   `json:"median_rt"`
	SDRT      float64   `json:"sd_rt"`
}

// Summary holds the descriptive results of a session
type Summary struct {
	Stage      Stage              `json:"stage,omitempty"`
	Conditions []ConditionSummary `json:"conditions"`
	Accuracy   Accuracy           `json:"-"`

	// DPrimeContext contrasts AX hits with BX false alarms. It is only
	// meaningful when DPrimeDefined is set.
	DPrimeContext float64 `json:"dprime_context"`
	DPrimeDefined bool    `json:"dprime_defined"`
}

// Condition returns the summary for c
func (s Summary) Condition(c Condition) ConditionSummary {
	for _, cs := range s.Conditions {
		if cs.Condition == c {
			return cs
		}
	}
	return ConditionSummary{Condition: c}
}

// Summarize aggregates probe records. An empty stage includes every stage.
func Summarize(records []Record, stage Stage) Summary {
	byCond := make(map[Condition][]Record, len(Conditions))
	summary := Summary{Stage: stage}
	for _, r := range records {
		if r.Kind != KindProbe || !r.Scored {
			continue
		}
		if stage != "" && r.Stage != stage {
			continue
		}
		byCond[r.Condition] = append(byCond[r.Condition], r)
		summary.Accuracy.Add(r)
	}

	for _, c := range Conditions {
		summary.Conditions = append(summary.Conditions, summarizeCondition(c, byCond[c]))
	}

	ax, bx := summary.Condition(AX), summary.Condition(BX)
	if ax.Trials > 0 && bx.Trials > 0 {
		falseAlarms := 0
		for _, r := range byCond[BX] {
			if r.KeyPress != NoResponse && !r.Correct {
				falseAlarms++
			}
		}
		summary.DPrimeContext = DPrime(ax.Correct, ax.Trials, falseAlarms, bx.Trials)
		summary.DPrimeDefined = true
	}
	return summary
}

func summarizeCondition(c Condition, records []Record) ConditionSummary {
	cs := ConditionSummary{Condition: c, Trials: len(records)}
	var rts []float64
	for _, r := range records {
		if r.KeyPress == NoResponse {
			cs.Omissions++
		}
		if r.Correct {
			cs.Correct++
			if r.RT >= 0 {
				rts = append(rts, float64(r.RT)/float64(time.Millisecond))
			}
		}
	}
	if cs.Trials > 0 {
		cs.Accuracy = float64(cs.Correct) / float64(cs.Trials)
	}
	if len(rts) > 0 {
		cs.MeanRT, _ = stats.Mean(rts)
		cs.MedianRT, _ = stats.Median(rts)
	}
	if len(rts) > 1 {
		cs.SDRT, _ = stats.StandardDeviationSample(rts)
	}
	return cs
}

// DPrime returns z(hit rate) - z(false alarm rate) with the log-linear
// correction, which keeps both rates away from 0 and 1.
func DPrime(hits, signalTrials, falseAlarms, noiseTrials int) float64 {
	hitRate := (float64(hits) + 0.5) / (float64(signalTrials) + 1)
	faRate := (float64(falseAlarms) + 0.5) / (float64(noiseTrials) + 1)
	return distuv.UnitNormal.Quantile(hitRate) - distuv.UnitNormal.Quantile(faRate)
}
