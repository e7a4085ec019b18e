// Package timeline renders the task as a jsPsych timeline: an ordered
// list of poldrack-single-stim descriptors with the practice block
// wrapped in an accuracy-gated loop node.
package timeline

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/example/dpx/internal/task"
)

// PluginType is the jsPsych plugin every descriptor uses
const PluginType = "poldrack-single-stim"

// ExperimentID is logged on the final trial
const ExperimentID = "dot_pattern_expectancy"

// Descriptor is one jsPsych trial
type Descriptor struct {
	Type              string         `json:"type"`
	Stimulus          string         `json:"stimulus"`
	IsHTML            bool           `json:"is_html"`
	Choices           interface{}    `json:"choices"`
	TimingStim        int            `json:"timing_stim,omitempty"`
	TimingResponse    int            `json:"timing_response"`
	TimingPostTrial   int            `json:"timing_post_trial"`
	ResponseEndsTrial bool           `json:"response_ends_trial"`
	Data              map[string]any `json:"data"`
}

// Loop repeats its timeline until the probe accuracy passes Threshold or
// MaxRepeats is reached. A browser runtime regenerates the block per pass.
type Loop struct {
	Timeline   []Descriptor `json:"timeline"`
	Threshold  float64      `json:"accuracy_threshold"`
	MaxRepeats int          `json:"max_repeats"`
}

// Node is either a single trial or a loop
type Node struct {
	Trial *Descriptor `json:"trial,omitempty"`
	Loop  *Loop       `json:"loop,omitempty"`
}

// Experiment is the full exported timeline
type Experiment struct {
	ID         string   `json:"exp_id"`
	ValidCue   string   `json:"valid_cue"`
	ValidProbe string   `json:"valid_probe"`
	Preload    []string `json:"preload"`
	Timeline   []Node   `json:"timeline"`
}

// Build assembles instructions, the practice loop, each test block with
// its start screen and the rest screens between blocks, then the end screen.
func Build(b *task.Builder) (*Experiment, error) {
	stim := b.Stimuli()
	r := renderer{dir: stim.Dir}

	exp := &Experiment{
		ID:         ExperimentID,
		ValidCue:   stim.ValidCue,
		ValidProbe: stim.ValidProbe,
		Preload:    stim.Preload(),
	}
	exp.add(r.descriptor(b.Instructions()))

	practice, err := b.PracticeTrials()
	if err != nil {
		return nil, err
	}
	policy := b.Config().Practice
	loop := &Loop{Threshold: policy.Threshold, MaxRepeats: policy.MaxRepeats}
	for _, t := range practice {
		loop.Timeline = append(loop.Timeline, r.descriptor(t))
	}
	exp.Timeline = append(exp.Timeline, Node{Loop: loop})

	blocks, err := b.TestBlocks()
	if err != nil {
		return nil, err
	}
	for n, block := range blocks {
		exp.add(r.descriptor(b.TestStart(n)))
		for _, t := range block {
			exp.add(r.descriptor(t))
		}
		if n+1 < len(blocks) {
			exp.add(r.descriptor(b.Rest(n)))
		}
	}

	end := r.descriptor(b.End())
	end.Data["exp_id"] = ExperimentID
	exp.add(end)
	return exp, nil
}

func (e *Experiment) add(d Descriptor) {
	e.Timeline = append(e.Timeline, Node{Trial: &d})
}

// Trials flattens the timeline, expanding the practice loop once
func (e *Experiment) Trials() []Descriptor {
	var out []Descriptor
	for _, n := range e.Timeline {
		switch {
		case n.Trial != nil:
			out = append(out, *n.Trial)
		case n.Loop != nil:
			out = append(out, n.Loop.Timeline...)
		}
	}
	return out
}

// Write encodes the experiment as indented JSON
func Write(w io.Writer, exp *Experiment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("failed to encode timeline: %w", err)
	}
	return nil
}

type renderer struct {
	dir string
}

func (r renderer) descriptor(t task.Trial) Descriptor {
	d := Descriptor{
		Type:              PluginType,
		Stimulus:          r.stimulus(t),
		IsHTML:            true,
		Choices:           choices(t.Choices),
		TimingStim:        millis(t.StimDuration),
		TimingResponse:    millis(t.ResponseWindow),
		TimingPostTrial:   millis(t.PostTrialGap),
		ResponseEndsTrial: t.ResponseEndsTrial,
		Data: map[string]any{
			"trial_id": string(t.Kind),
		},
	}
	if t.ResponseWindow == 0 {
		d.TimingResponse = -1
	}
	if t.Condition != "" {
		d.Data["condition"] = string(t.Condition)
	}
	if t.Stage != "" {
		d.Data["exp_stage"] = string(t.Stage)
	}
	return d
}

func (r renderer) stimulus(t task.Trial) string {
	switch {
	case t.Image:
		return `<div class = centerbox><div class = img-container><img src = "` + r.src(t.Stimulus) + `"</img></div></div>`
	case t.Kind == task.KindInstructions:
		return r.instructions(t)
	case t.Kind == task.KindFixation:
		return `<div class = centerbox><div class = fixation>` + html.EscapeString(t.Stimulus) + `</div></div>`
	case t.Kind == task.KindFeedback && t.Stimulus == "":
		// filled in by the runtime after the probe is scored
		return ""
	default:
		text := strings.ReplaceAll(html.EscapeString(t.Stimulus), "\n", "<br>")
		return `<div class = centerbox><div class = center-text>` + text + `</div></div>`
	}
}

func (r renderer) instructions(t task.Trial) string {
	var sb strings.Builder
	sb.WriteString(`<div class = centerbox><p style = "font-size:40px" class = center-block-text>Target Pair (press index finger):</p><p class = center-block-text>`)
	for i, img := range t.Attachments {
		if i > 0 {
			sb.WriteString(`&nbsp&nbsp&nbsp...followed by...&nbsp&nbsp&nbsp`)
		}
		sb.WriteString(`<img src = "` + r.src(img) + `" ></img>`)
	}
	sb.WriteString(`<br></br></p><p style = "font-size:40px" class = center-block-text>Otherwise press middle finger</div>`)
	return sb.String()
}

func (r renderer) src(name string) string {
	if r.dir == "" {
		return name
	}
	return strings.TrimSuffix(r.dir, "/") + "/" + name
}

func choices(keys []task.Key) interface{} {
	if len(keys) == 0 {
		return "none"
	}
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = int(k)
	}
	return out
}

func millis(d time.Duration) int {
	return int(d / time.Millisecond)
}
