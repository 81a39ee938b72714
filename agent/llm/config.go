package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/chorusml/chorus/agent/contract"
	openrouterx "github.com/chorusml/chorus/pkg/openrouter"
)

// Config is the single environment-backed record that parameterizes every
// model-calling component. Per-unit model/temperature overrides fall back to
// the shared defaults; an override temperature below zero means "unset".
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel       string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	GeneralModel      string  `envconfig:"GENERAL_MODEL" split_words:"true"`
	ResearchModel     string  `envconfig:"RESEARCH_MODEL" split_words:"true"`
	WritingModel      string  `envconfig:"WRITING_MODEL" split_words:"true"`
	CodeModel         string  `envconfig:"CODE_MODEL" split_words:"true"`
	SynthesisModel    string  `envconfig:"SYNTHESIS_MODEL" split_words:"true"`
	RouterTemperature float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0"`

	GeneralTemperature   float32 `envconfig:"GENERAL_TEMPERATURE" split_words:"true" default:"-1"`
	ResearchTemperature  float32 `envconfig:"RESEARCH_TEMPERATURE" split_words:"true" default:"-1"`
	WritingTemperature   float32 `envconfig:"WRITING_TEMPERATURE" split_words:"true" default:"-1"`
	CodeTemperature      float32 `envconfig:"CODE_TEMPERATURE" split_words:"true" default:"-1"`
	SynthesisTemperature float32 `envconfig:"SYNTHESIS_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// ModelFor resolves the model selector for one generative unit.
func (c Config) ModelFor(unit contractx.UnitName) string {
	model := strings.TrimSpace(c.Model)
	if v := strings.TrimSpace(c.overrideModel(unit)); v != "" {
		model = v
	}
	return model
}

// TemperatureFor resolves the sampling temperature for one generative unit.
func (c Config) TemperatureFor(unit contractx.UnitName) float32 {
	if t := c.overrideTemperature(unit); t >= 0 {
		return t
	}
	return c.Temperature
}

func (c Config) overrideModel(unit contractx.UnitName) string {
	switch unit {
	case contractx.UnitGeneral:
		return c.GeneralModel
	case contractx.UnitResearch:
		return c.ResearchModel
	case contractx.UnitWriting:
		return c.WritingModel
	case contractx.UnitCode:
		return c.CodeModel
	default:
		return ""
	}
}

func (c Config) overrideTemperature(unit contractx.UnitName) float32 {
	switch unit {
	case contractx.UnitGeneral:
		return c.GeneralTemperature
	case contractx.UnitResearch:
		return c.ResearchTemperature
	case contractx.UnitWriting:
		return c.WritingTemperature
	case contractx.UnitCode:
		return c.CodeTemperature
	default:
		return -1
	}
}

// RouterModelName resolves the router's model; the router runs at its own
// low temperature so classification stays deterministic.
func (c Config) RouterModelName() string {
	if v := strings.TrimSpace(c.RouterModel); v != "" {
		return v
	}
	return strings.TrimSpace(c.Model)
}

// SynthesisModelName resolves the aggregator's synthesis model.
func (c Config) SynthesisModelName() string {
	if v := strings.TrimSpace(c.SynthesisModel); v != "" {
		return v
	}
	return strings.TrimSpace(c.Model)
}

func (c Config) SynthesisTemp() float32 {
	if c.SynthesisTemperature >= 0 {
		return c.SynthesisTemperature
	}
	return c.Temperature
}

// OpenRouterFor builds the provider config for one generative unit's chat
// model.
func (c Config) OpenRouterFor(unit contractx.UnitName) openrouterx.Config {
	return c.openRouterWith(c.ModelFor(unit), c.TemperatureFor(unit))
}

// OpenRouterForSynthesis builds the provider config for the aggregator's
// synthesis model.
func (c Config) OpenRouterForSynthesis() openrouterx.Config {
	return c.openRouterWith(c.SynthesisModelName(), c.SynthesisTemp())
}

// OpenRouterForRouter builds the provider config for the router's constrained
// classification call.
func (c Config) OpenRouterForRouter() openrouterx.Config {
	return c.openRouterWith(c.RouterModelName(), c.RouterTemperature)
}

func (c Config) openRouterWith(model string, temperature float32) openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              model,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
