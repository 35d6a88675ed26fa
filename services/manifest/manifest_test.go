package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"launchpad/crypto"
)

func recipient(fill byte) string {
	return crypto.MustAddress(bytes.Repeat([]byte{fill}, 20)).String()
}

func TestLoadManifest(t *testing.T) {
	doc := fmt.Sprintf(`batch: round-1
distributions:
  - contribution_id: c-1
    recipient: %s
    amount: 5_000
  - contribution_id: " c-2 "
    recipient: %s
    amount: "18446744073709551615"
`, recipient(0x01), recipient(0x02))
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "round-1", m.Batch)

	items, err := m.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "c-2", items[1].ContributionID)
	require.Equal(t, uint64(5_000), items[0].Amount)
	require.Equal(t, uint64(18446744073709551615), items[1].Amount)

	_, err = Total(items)
	require.Error(t, err)
	total, err := Total(items[:1])
	require.NoError(t, err)
	require.Equal(t, uint64(5_000), total)
}

func TestManifestValidation(t *testing.T) {
	cases := map[string]string{
		"duplicate id": fmt.Sprintf("distributions:\n  - {contribution_id: a, recipient: %s, amount: 1}\n  - {contribution_id: a, recipient: %s, amount: 2}\n", recipient(1), recipient(2)),
		"zero amount":  fmt.Sprintf("distributions:\n  - {contribution_id: a, recipient: %s, amount: 0}\n", recipient(1)),
		"bad address":  "distributions:\n  - {contribution_id: a, recipient: nope, amount: 1}\n",
		"long id":      fmt.Sprintf("distributions:\n  - {contribution_id: %s, recipient: %s, amount: 1}\n", strings.Repeat("x", 65), recipient(1)),
		"empty":        "batch: nothing\n",
	}
	for name, doc := range cases {
		m, err := Parse([]byte(doc))
		require.NoError(t, err, name)
		_, err = m.Items()
		require.Error(t, err, name)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("distribution: []\n"))
	require.Error(t, err)
	_, err = Parse([]byte("distributions:\n  - {contribution_id: a, recipient: x, amount: -1}\n"))
	require.Error(t, err)
	_, err = Parse(nil)
	require.Error(t, err)
}
