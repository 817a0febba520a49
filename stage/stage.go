// Package stage names the pipeline's reasoning stages and maps each one to
// an appropriate model tier. Stages that carry the plan's judgment get the
// thinking tier; extraction and matching run on the default tier.
package stage

import (
	"github.com/randalmurphal/llmkit/model"
)

// Kind identifies one reasoning stage of the planning pipeline.
type Kind string

const (
	Ingestion     Kind = "input_ingestion"
	Architecture  Kind = "architecture_context"
	Clarification Kind = "clarification"
	Decomposition Kind = "task_decomposition"
	Matching      Kind = "role_task_matching"
	Risk          Kind = "validation_risk"
)

// All lists the reasoning stages in pipeline order.
func All() []Kind {
	return []Kind{Ingestion, Architecture, Clarification, Decomposition, Matching, Risk}
}

// DefaultModelMap maps stage kinds to default models.
var DefaultModelMap = map[Kind]model.ModelName{
	Ingestion:     model.ModelSonnet,
	Architecture:  model.ModelOpus,
	Clarification: model.ModelSonnet,
	Decomposition: model.ModelOpus,
	Matching:      model.ModelSonnet,
	Risk:          model.ModelOpus,
}

// TierFor returns the model tier a stage should run on.
func TierFor(k Kind) model.Tier {
	switch k {
	case Architecture, Decomposition, Risk:
		return model.TierThinking
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector that understands stage kinds.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if k, ok := task.(Kind); ok {
				return TierFor(k)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel returns the model to use for a stage.
func SelectModel(k Kind) model.ModelName {
	if m, ok := DefaultModelMap[k]; ok {
		return m
	}
	switch TierFor(k) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}
