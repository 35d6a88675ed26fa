// Package manifest reads batch distribution manifests written in YAML.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"launchpad/crypto"
	"launchpad/native/dispenser"
)

// Amount accepts either an integer scalar or a quoted decimal string so large
// base-unit values survive YAML tooling that coerces numbers to floats.
type Amount uint64

// UnmarshalYAML parses base-unit amounts.
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("amount must be a scalar")
	}
	raw := strings.ReplaceAll(strings.TrimSpace(value.Value), "_", "")
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", value.Line, value.Value)
	}
	*a = Amount(parsed)
	return nil
}

// Entry is one pledged payout.
type Entry struct {
	ContributionID string `yaml:"contribution_id"`
	Recipient      string `yaml:"recipient"`
	Amount         Amount `yaml:"amount"`
}

// Manifest is the top-level document.
type Manifest struct {
	Batch         string  `yaml:"batch"`
	Distributions []Entry `yaml:"distributions"`
}

// Item is a validated manifest entry ready for enqueue.
type Item struct {
	ContributionID string
	Recipient      crypto.Address
	Amount         uint64
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

// Parse decodes a manifest from raw bytes.
func Parse(raw []byte) (*Manifest, error) {
	return Decode(bytes.NewReader(raw))
}

// Decode reads a single manifest document from r.
func Decode(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode manifest: empty document")
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Items validates every entry and returns them in manifest order. Validation
// mirrors what the queue enforces so a bad manifest fails before any entry is
// submitted.
func (m *Manifest) Items() ([]Item, error) {
	if m == nil || len(m.Distributions) == 0 {
		return nil, fmt.Errorf("manifest has no distributions")
	}
	seen := make(map[string]int, len(m.Distributions))
	items := make([]Item, 0, len(m.Distributions))
	for i, entry := range m.Distributions {
		id := strings.TrimSpace(entry.ContributionID)
		if id == "" || len(id) > dispenser.MaxContributionIDLength {
			return nil, fmt.Errorf("distributions[%d]: contribution_id must be 1-%d bytes", i, dispenser.MaxContributionIDLength)
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("distributions[%d]: contribution_id %q repeats entry %d", i, id, prev)
		}
		seen[id] = i
		recipient, err := crypto.ParseAddress(entry.Recipient)
		if err != nil {
			return nil, fmt.Errorf("distributions[%d]: recipient: %w", i, err)
		}
		if entry.Amount == 0 {
			return nil, fmt.Errorf("distributions[%d]: amount must be positive", i)
		}
		items = append(items, Item{ContributionID: id, Recipient: recipient, Amount: uint64(entry.Amount)})
	}
	return items, nil
}

// Total sums the manifest amounts, failing on overflow.
func Total(items []Item) (uint64, error) {
	var total uint64
	for _, item := range items {
		next := total + item.Amount
		if next < total {
			return 0, fmt.Errorf("manifest total overflows")
		}
		total = next
	}
	return total, nil
}
