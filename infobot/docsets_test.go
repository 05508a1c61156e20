package infobot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocSetConfig_Default(t *testing.T) {
	cfg, err := LoadDocSetConfig("")
	require.NoError(t, err)

	assert.Equal(
		t,
		[]string{
			"latest",
			"latest-jp",
			"python",
			"python-jp",
			"master",
			"edpy",
			"chai",
			"bing",
			"pycord",
		},
		cfg.IDs(),
	)

	latest, ok := cfg.Set("latest")
	require.True(t, ok)
	assert.Equal(t, "https://discordpy.readthedocs.io/en/latest", latest.BaseURL)
	assert.Equal(t, "https://discordpy.readthedocs.io/en/latest/objects.inv", latest.InventoryURL())
	assert.Equal(t, "messageable", latest.AliasTable)

	python, ok := cfg.Set("python")
	require.True(t, ok)
	assert.Empty(t, python.AliasTable)

	assert.Equal(t, "discord.py", cfg.NamespaceStrip.Project)
	assert.NotEmpty(t, cfg.Thumbnail)
}

func TestLoadDocSetConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docsets.yaml")
	require.NoError(
		t,
		os.WriteFile(
			path,
			[]byte("sets:\n  - id: go\n    title: Go\n    base_url: https://pkg.go.dev\n"),
			0o600,
		),
	)
	cfg, err := LoadDocSetConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, cfg.IDs())

	_, err = LoadDocSetConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseDocSetConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "no sets", data: "thumbnail: x\n"},
		{name: "missing base url", data: "sets:\n  - id: a\n"},
		{name: "bad base url", data: "sets:\n  - id: a\n    base_url: not a url\n"},
		{
			name: "duplicate ids",
			data: "sets:\n  - id: a\n    base_url: https://a.b\n  - id: a\n    base_url: https://c.d\n",
		},
		{
			name: "unknown alias table",
			data: "sets:\n  - id: a\n    base_url: https://a.b\n    alias_table: nope\n",
		},
		{name: "bad yaml", data: "sets: [\n"},
	}
	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				_, err := ParseDocSetConfig([]byte(tc.data))
				require.Error(t, err)
			},
		)
	}
}

func TestStripPrefixGroups(t *testing.T) {
	groups := [][]string{{"discord.ext.", "discord."}, {"commands."}}
	testCases := []struct {
		input    string
		expected string
	}{
		{"discord.ext.commands.Bot", "Bot"},
		{"discord.ext.tasks.loop", "tasks.loop"},
		{"discord.Client", "Client"},
		{"commands.Context", "Context"},
		{"Client", "Client"},
		{"discord.ext", "ext"},
		{"discord.", "discord."},
		{"commands.", "commands."},
		{"discord.commands.", "commands."},
		{"discord.ext.commands.", "commands."},
		{"discord.ext.", "ext."},
	}
	for _, tc := range testCases {
		t.Run(
			tc.input, func(t *testing.T) {
				got, ok := stripPrefixGroups(tc.input, groups)
				require.True(t, ok)
				assert.Equal(t, tc.expected, got)
			},
		)
	}

	_, ok := stripPrefixGroups("", groups)
	assert.False(t, ok)
}

func TestNormalizeQuery(t *testing.T) {
	cfg, err := LoadDocSetConfig("")
	require.NoError(t, err)

	latest, _ := cfg.Set("latest")
	python, _ := cfg.Set("python")

	assert.Equal(t, "abc.Messageable.send", cfg.NormalizeQuery(latest, "Send"))
	assert.Equal(t, "abc.Messageable.trigger_typing", cfg.NormalizeQuery(latest, "discord.trigger_typing"))
	assert.Equal(t, "sendall", cfg.NormalizeQuery(latest, "sendall"))
	assert.Equal(t, "send", cfg.NormalizeQuery(python, "send"))
	assert.Equal(t, "Bot", cfg.NormalizeQuery(python, "commands.Bot"))
	assert.Equal(t, "", cfg.NormalizeQuery(python, ""))
}
