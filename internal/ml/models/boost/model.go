// Package boost wraps a gradient-boosted classifier used as an accuracy
// benchmark against the linear success predictor.
package boost

import (
	"errors"
	"math"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"

	"quant-sandbox/internal/domain"
)

type TrainOptions struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rounds:       40,
		LearningRate: 0.08,
		MaxDepth:     4,
	}
}

// Model is a trained success/failure classifier over feature vectors.
type Model struct {
	boost *boo.MultiClass
}

// Train fits a boosted model on labeled outcomes. Both outcome classes must be
// present; a single-class set cannot be benchmarked.
func Train(points []domain.LabeledDataPoint, opts TrainOptions) (*Model, error) {
	if len(points) == 0 {
		return nil, errors.New("empty training set")
	}
	samples := make([][]float64, len(points))
	labels := make([]int, len(points))
	classes := make(map[int]struct{}, 2)
	for i, p := range points {
		samples[i] = p.Features.Values()
		if p.Success {
			labels[i] = 1
		}
		classes[labels[i]] = struct{}{}
	}
	if len(classes) < 2 {
		return nil, errors.New("training set needs both outcomes")
	}

	if opts.Rounds <= 0 {
		opts.Rounds = DefaultTrainOptions().Rounds
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultTrainOptions().MaxDepth
	}

	o := boo.DefaultXOptions()
	o.Rounds = opts.Rounds
	o.LearningRate = opts.LearningRate
	o.MaxDepth = opts.MaxDepth
	o.Verbose = false
	o.EarlyStop = 0

	data := &utils.DataBunch{
		Data:   samples,
		Labels: labels,
		Keys:   append([]string(nil), domain.FeatureNames...),
	}
	model := boo.NewMultiClass(data, o)
	if model == nil {
		return nil, errors.New("boosted training failed")
	}
	return &Model{boost: model}, nil
}

// PredictSuccess returns the success-class probability for one vector.
func (m *Model) PredictSuccess(fv domain.FeatureVector) float64 {
	if m == nil || m.boost == nil {
		return 0.5
	}
	probs := m.boost.PredictSingle(fv.Values())
	labels := m.boost.ClassLabels()
	for i := range labels {
		if labels[i] == 1 {
			return clamp01(probs[i])
		}
	}
	if len(probs) == 0 {
		return 0.5
	}
	return clamp01(probs[len(probs)-1])
}

// Accuracy scores the model against labeled outcomes at a 0.5 cut.
func (m *Model) Accuracy(points []domain.LabeledDataPoint) float64 {
	if m == nil || len(points) == 0 {
		return 0
	}
	correct := 0
	for _, p := range points {
		if (m.PredictSuccess(p.Features) >= 0.5) == p.Success {
			correct++
		}
	}
	return float64(correct) / float64(len(points))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
