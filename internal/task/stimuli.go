package task

import (
	"fmt"
	"math/rand"
	"path"
)

// StimulusSet holds the reserved valid cue/probe pair and the distractor pools.
type StimulusSet struct {
	Dir        string
	ValidCue   string
	ValidProbe string

	cues   []string
	probes []string
}

// NewStimulusSet shuffles both image pools and reserves the last image of
// each as the valid pair. The reserved images never appear as distractors.
func NewStimulusSet(dir string, cues, probes []string, rnd *rand.Rand) (*StimulusSet, error) {
	if len(cues) < 2 {
		return nil, fmt.Errorf("need at least 2 cue images, got %d", len(cues))
	}
	if len(probes) < 2 {
		return nil, fmt.Errorf("need at least 2 probe images, got %d", len(probes))
	}

	shuffledCues := Shuffle(rnd, cues)
	shuffledProbes := Shuffle(rnd, probes)

	return &StimulusSet{
		Dir:        dir,
		ValidCue:   shuffledCues[len(shuffledCues)-1],
		ValidProbe: shuffledProbes[len(shuffledProbes)-1],
		cues:       shuffledCues[:len(shuffledCues)-1],
		probes:     shuffledProbes[:len(shuffledProbes)-1],
	}, nil
}

// InvalidCue draws a distractor cue
func (s *StimulusSet) InvalidCue(rnd *rand.Rand) string {
	c, _ := Draw(rnd, s.cues)
	return c
}

// InvalidProbe draws a distractor probe
func (s *StimulusSet) InvalidProbe(rnd *rand.Rand) string {
	p, _ := Draw(rnd, s.probes)
	return p
}

// Path joins an image name onto the stimulus directory
func (s *StimulusSet) Path(name string) string {
	if s.Dir == "" {
		return name
	}
	return path.Join(s.Dir, name)
}

// Preload lists every image the task can show
func (s *StimulusSet) Preload() []string {
	images := make([]string, 0, len(s.cues)+len(s.probes)+2)
	images = append(images, s.Path(s.ValidCue), s.Path(s.ValidProbe))
	for _, c := range s.cues {
		images = append(images, s.Path(c))
	}
	for _, p := range s.probes {
		images = append(images, s.Path(p))
	}
	return images
}
