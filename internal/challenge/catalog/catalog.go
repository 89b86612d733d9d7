// Package catalog serves challenge definitions from a YAML document, by
// default the one embedded in the binary.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"

	"gopkg.in/yaml.v3"
)

//go:embed challenges.yaml
var embedded []byte

type document struct {
	Challenges []model.Challenge `yaml:"challenges"`
}

// Catalog is an immutable, in-memory challenge store.
type Catalog struct {
	order []string
	byID  map[string]model.Challenge
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// LoadFile reads a catalog document from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document. Every challenge must pass
// Challenge.Validate and ids must be unique.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidFormat, "decode catalog: %s", err.Error())
	}
	if len(doc.Challenges) == 0 {
		return nil, appErr.New(appErr.InvalidFormat).WithMessage("catalog has no challenges")
	}

	c := &Catalog{byID: make(map[string]model.Challenge, len(doc.Challenges))}
	for _, ch := range doc.Challenges {
		if err := ch.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[ch.ID]; dup {
			return nil, appErr.Newf(appErr.InvalidValue, "duplicate challenge id %s", ch.ID)
		}
		c.byID[ch.ID] = ch
		c.order = append(c.order, ch.ID)
	}
	return c, nil
}

// Get returns a copy of the challenge with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (model.Challenge, error) {
	ch, ok := c.byID[id]
	if !ok {
		return model.Challenge{}, appErr.Newf(appErr.ChallengeNotFound, "challenge %s not found", id)
	}
	return ch.Clone(), nil
}

// List returns copies of every challenge in document order.
func (c *Catalog) List(ctx context.Context) ([]model.Challenge, error) {
	out := make([]model.Challenge, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Clone())
	}
	return out, nil
}

// Len returns the number of challenges.
func (c *Catalog) Len() int { return len(c.order) }
