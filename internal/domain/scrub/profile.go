package scrub

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a YAML tuning file. Sections and fields left out keep their
// defaults.
//
//	rules:
//	  necessity_threshold: 65
//	scoring:
//	  critical_floor: 75
type Profile struct {
	Rules   RuleConfig    `json:"rules" yaml:"rules"`
	Scoring ScoringConfig `json:"scoring" yaml:"scoring"`
}

func DefaultProfile() Profile {
	return Profile{Rules: DefaultRuleConfig(), Scoring: DefaultScoringConfig()}
}

func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("scrub.LoadProfile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes YAML over the defaults and validates the result.
func ParseProfile(data []byte) (Profile, error) {
	p := DefaultProfile()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("scrub.ParseProfile: %w", err)
	}
	if err := p.Rules.Validate(); err != nil {
		return Profile{}, err
	}
	if err := p.Scoring.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
