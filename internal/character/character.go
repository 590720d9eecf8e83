// Package character owns the Character entity: identity, normalization, and
// the CDL-derived personality definition consumed by prompt assembly and
// self-knowledge extraction.
package character

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Character is the persona served by one process. It is loaded once at
// startup and immutable for the lifetime of the service instance.
type Character struct {
	Name        string // canonical, as configured
	Normalized  string // normalized form, see Normalize
	DisplayName string

	Personality Personality
}

// Personality holds the CDL-derived traits used by prompt assembly (§4.10)
// and self-knowledge extraction (§4.8).
type Personality struct {
	Values              []ValueTrait   `yaml:"values"`
	CommunicationStyle  Communication  `yaml:"communication_style"`
	Interests           []string       `yaml:"interests"`
	BehavioralTriggers  []Trigger      `yaml:"behavioral_triggers"`
	Abilities           []string       `yaml:"abilities"`
	SystemPromptTemplate string        `yaml:"system_prompt_template"`
}

// ValueTrait is one value or belief the character holds, with an importance
// weight used by self-knowledge confidence scoring (§4.8).
type ValueTrait struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Importance  float64 `yaml:"importance"`
}

// Communication captures the character's response-shaping dials.
type Communication struct {
	Tone             string  `yaml:"tone"`
	Formality        float64 `yaml:"formality"`
	EngagementLevel  float64 `yaml:"engagement_level"`
	EmotionalExpression float64 `yaml:"emotional_expression"`
	ResponseLength   string  `yaml:"response_length"`
}

// Trigger is a behavioral trigger: a situation and the character's typical
// reaction to it.
type Trigger struct {
	Situation string `yaml:"situation"`
	Reaction  string `yaml:"reaction"`
}

// cdlFile is the on-disk shape for a character definition file.
type cdlFile struct {
	Name        string      `yaml:"name"`
	DisplayName string      `yaml:"display_name"`
	Personality Personality `yaml:"personality"`
}

// Normalize applies spec.md §3's character-name normalization: lower-case,
// strip bot_/_bot affixes, spaces to underscores, drop non-alphanumerics.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "bot_")
	n = strings.TrimSuffix(n, "_bot")
	n = strings.ReplaceAll(n, " ", "_")
	var b strings.Builder
	for _, r := range n {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Load reads a character's identity and, when promptFile points at a
// structured CDL YAML document, its personality definition. A plain-text
// prompt file is accepted too: its content becomes the system prompt
// template verbatim and personality fields stay at zero value.
func Load(name string, promptFile string) (Character, error) {
	c := Character{
		Name:        name,
		Normalized:  Normalize(name),
		DisplayName: name,
	}
	if promptFile == "" {
		return c, nil
	}
	raw, err := os.ReadFile(promptFile)
	if err != nil {
		return c, err
	}
	if strings.HasSuffix(strings.ToLower(promptFile), ".yaml") || strings.HasSuffix(strings.ToLower(promptFile), ".yml") {
		var f cdlFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return c, err
		}
		if f.DisplayName != "" {
			c.DisplayName = f.DisplayName
		}
		c.Personality = f.Personality
		return c, nil
	}
	c.Personality.SystemPromptTemplate = string(raw)
	return c, nil
}
