package translation

import (
	"context"
	"fmt"
	"log/slog"

	"cardflow/internal/kanban"
	"cardflow/internal/logging"
	"cardflow/internal/services"
)

// BuildPlan derives a card's translation steps from a snapshot of the board's
// translation configuration. With an intermediate hop (and hop distinct from
// both endpoints) the plan is source→hop followed by hop→target, where the
// second step's original text stays empty until the first completes.
// Otherwise the plan is a single source→target step. The snapshot is
// one-time: later board configuration edits never rewrite an existing plan.
func BuildPlan(cfg kanban.TranslationConfig, sourceText string) []kanban.TranslationStep {
	source := cfg.SourceLang
	target := cfg.TargetLang
	if source == "" || target == "" || source == target {
		return nil
	}
	hop := cfg.HopLang
	if cfg.IntermediateHop && hop != "" && hop != source && hop != target {
		return []kanban.TranslationStep{
			{FromLang: source, ToLang: hop, OriginalText: sourceText, Status: kanban.StepPending},
			{FromLang: hop, ToLang: target, Status: kanban.StepPending},
		}
	}
	return []kanban.TranslationStep{
		{FromLang: source, ToLang: target, OriginalText: sourceText, Status: kanban.StepPending},
	}
}

// IsComplete reports whether every step of the card's plan has reached
// completed or approved. Cards without a plan count as complete.
func IsComplete(card *kanban.Card) bool {
	for _, step := range card.Steps {
		if !step.Status.Done() {
			return false
		}
	}
	return true
}

// CurrentTranslation returns the best available translated text: scanning
// from the last step backwards, the first completed or approved step wins.
// Mid-pipeline this yields the intermediate text rather than nothing.
func CurrentTranslation(card *kanban.Card) string {
	for i := len(card.Steps) - 1; i >= 0; i-- {
		if card.Steps[i].Status.Done() {
			return card.Steps[i].TranslatedText
		}
	}
	return ""
}

// Pipeline advances a card's translation steps through providers, manual
// overrides, and approvals. Step writes are plain document updates; the
// pipeline deliberately carries no cross-step locking.
type Pipeline struct {
	store    *kanban.Store
	registry *Registry
	logger   *slog.Logger
}

// NewPipeline builds a Pipeline over the given store and provider registry.
func NewPipeline(store *kanban.Store, registry *Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    store,
		registry: registry,
		logger:   logging.WithComponent(logger, "translation"),
	}
}

// Execute runs one step through the named provider. A provider failure is
// recorded on the step without aborting the rest of the plan; a fresh call is
// the retry mechanism. On success the translated text seeds the next step's
// original text if that step is still empty.
func (p *Pipeline) Execute(ctx context.Context, card *kanban.Card, stepIndex int, providerName string) (*kanban.Card, error) {
	if err := checkStepIndex(card, stepIndex); err != nil {
		return nil, err
	}
	step := card.Steps[stepIndex]
	if step.Status == kanban.StepApproved {
		return nil, services.Wrap(services.ErrValidation, "translation", "execute", "approved steps are final", nil)
	}
	if step.OriginalText == "" {
		return nil, services.Wrap(services.ErrValidation, "translation", "execute", "step has no source text yet; complete its predecessor first", nil)
	}
	provider, err := p.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	card.Steps[stepIndex].Status = kanban.StepInProgress
	card.Steps[stepIndex].Provider = provider.Name()
	card.Steps[stepIndex].ErrorMessage = ""
	if err := p.store.UpdateSteps(ctx, card.ID, card.Steps); err != nil {
		return nil, services.Wrap(services.ErrTransient, "translation", "execute", "persist in-progress state", err)
	}

	translated, provErr := provider.Translate(ctx, step.OriginalText, step.FromLang, step.ToLang)
	if provErr != nil {
		card.Steps[stepIndex].Status = kanban.StepError
		card.Steps[stepIndex].ErrorMessage = provErr.Error()
		if err := p.store.UpdateSteps(ctx, card.ID, card.Steps); err != nil {
			return nil, services.Wrap(services.ErrTransient, "translation", "execute", "persist error state", err)
		}
		p.logger.Warn("provider failed",
			logging.FieldCardID, card.ID,
			logging.FieldProvider, provider.Name(),
			"step", stepIndex,
			"error", provErr,
		)
		return nil, services.Wrap(services.ErrExternalTool, "translation", "execute", fmt.Sprintf("provider %s", provider.Name()), provErr)
	}

	card.Steps[stepIndex].TranslatedText = translated
	card.Steps[stepIndex].Status = kanban.StepCompleted
	seedNext(card.Steps, stepIndex)
	if err := p.store.UpdateSteps(ctx, card.ID, card.Steps); err != nil {
		return nil, services.Wrap(services.ErrTransient, "translation", "execute", "persist completed state", err)
	}
	p.logger.Info("step completed",
		logging.FieldCardID, card.ID,
		logging.FieldProvider, provider.Name(),
		"step", stepIndex,
		"from", step.FromLang,
		"to", step.ToLang,
	)
	return p.store.GetCard(ctx, card.ID)
}

// SetManual overwrites a step's translated text by hand. Manual entry always
// lands the step in completed with the manual flag set, bypassing any prior
// provider failure, and seeds the successor like a provider success would.
func (p *Pipeline) SetManual(ctx context.Context, card *kanban.Card, stepIndex int, text string) (*kanban.Card, error) {
	if err := checkStepIndex(card, stepIndex); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "translation", "manual", "translated text is required", nil)
	}
	card.Steps[stepIndex].TranslatedText = text
	card.Steps[stepIndex].Status = kanban.StepCompleted
	card.Steps[stepIndex].ManuallyEdited = true
	card.Steps[stepIndex].ErrorMessage = ""
	seedNext(card.Steps, stepIndex)
	if err := p.store.UpdateSteps(ctx, card.ID, card.Steps); err != nil {
		return nil, services.Wrap(services.ErrTransient, "translation", "manual", "persist manual text", err)
	}
	return p.store.GetCard(ctx, card.ID)
}

// Approve promotes a completed step to approved.
func (p *Pipeline) Approve(ctx context.Context, card *kanban.Card, stepIndex int) (*kanban.Card, error) {
	if err := checkStepIndex(card, stepIndex); err != nil {
		return nil, err
	}
	if card.Steps[stepIndex].Status != kanban.StepCompleted {
		return nil, services.Wrap(services.ErrValidation, "translation", "approve", fmt.Sprintf("only completed steps can be approved, step is %q", card.Steps[stepIndex].Status), nil)
	}
	card.Steps[stepIndex].Status = kanban.StepApproved
	if err := p.store.UpdateSteps(ctx, card.ID, card.Steps); err != nil {
		return nil, services.Wrap(services.ErrTransient, "translation", "approve", "persist approval", err)
	}
	return p.store.GetCard(ctx, card.ID)
}

func checkStepIndex(card *kanban.Card, stepIndex int) error {
	if card == nil {
		return services.Wrap(services.ErrValidation, "translation", "step", "card is required", nil)
	}
	if stepIndex < 0 || stepIndex >= len(card.Steps) {
		return services.Wrap(services.ErrValidation, "translation", "step", fmt.Sprintf("step index %d out of range (plan has %d steps)", stepIndex, len(card.Steps)), nil)
	}
	return nil
}

func seedNext(steps []kanban.TranslationStep, completed int) {
	next := completed + 1
	if next < len(steps) && steps[next].OriginalText == "" {
		steps[next].OriginalText = steps[completed].TranslatedText
	}
}
