package experiment

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/example/dpx/internal/task"
)

// Simulator is a Presenter that answers instantly like a participant
// with the given accuracy. Response times are log-normal in milliseconds.
type Simulator struct {
	Choices  task.Choices
	Accuracy float64
	Omission float64
	RT       distuv.LogNormal

	rnd *rand.Rand
}

// NewSimulator creates a simulated participant with a median RT of 450 ms
func NewSimulator(choices task.Choices, accuracy float64, seed uint64) *Simulator {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Simulator{
		Choices:  choices,
		Accuracy: accuracy,
		RT:       distuv.LogNormal{Mu: math.Log(450), Sigma: 0.25, Src: src},
		rnd:      rand.New(src),
	}
}

// Present implements Presenter
func (s *Simulator) Present(ctx context.Context, t task.Trial) (task.Response, error) {
	if err := ctx.Err(); err != nil {
		return task.Response{}, err
	}
	if !t.Responds() {
		return task.Timeout(), nil
	}

	rt := time.Duration(s.RT.Rand() * float64(time.Millisecond))
	if t.Kind != task.KindProbe {
		return task.Response{Key: t.Choices[0], RT: rt}, nil
	}
	if s.rnd.Float64() < s.Omission || (t.ResponseWindow > 0 && rt >= t.ResponseWindow) {
		return task.Timeout(), nil
	}

	key := s.Choices.Expected(t.Condition)
	if s.rnd.Float64() >= s.Accuracy {
		if key == s.Choices.Target {
			key = s.Choices.NonTarget
		} else {
			key = s.Choices.Target
		}
	}
	return task.Response{Key: key, RT: rt}, nil
}
