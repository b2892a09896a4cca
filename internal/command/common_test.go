// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/pokesearch/pokectl/internal/meta"
	"github.com/pokesearch/pokectl/internal/model"
)

func TestGetMeta_Missing(t *testing.T) {
	assert.Equal(t, meta.Meta{}, GetMeta(nil))
	assert.Equal(t, meta.Meta{}, GetMeta(&cli.Command{}))
	assert.Equal(t, meta.Meta{}, GetMeta(&cli.Command{
		Metadata: map[string]any{"meta": "wrong type"},
	}))
}

func TestGetMeta_Present(t *testing.T) {
	want := meta.Meta{Args: []string{"pokectl", "dq"}}
	got := GetMeta(&cli.Command{Metadata: map[string]any{"meta": want}})
	assert.Equal(t, []string{"pokectl", "dq"}, got.Args)
}

func TestFormatPath(t *testing.T) {
	path := []model.EvolutionNode{
		{Name: "pichu"},
		{Name: "pikachu", Detail: "Level 16"},
		{Name: "raichu", Detail: "Use Thunder Stone"},
	}
	assert.Equal(t, "pichu -> pikachu (Level 16) -> raichu (Use Thunder Stone)", FormatPath(path))
	assert.Equal(t, "ditto", FormatPath([]model.EvolutionNode{{Name: "ditto"}}))
}

func TestWriteRecord(t *testing.T) {
	rate := 190
	r := model.Record{
		ID:          25,
		Name:        "Pikachu",
		Category:    "Pokémon",
		Description: "Stores electricity.",
		Sections: []model.Section{
			{Title: "Types", Items: []string{"electric"}},
		},
		Metadata: model.SpeciesMetadata{CaptureRate: &rate},
		Evolution: &model.EvolutionNode{
			Name: "pichu",
			Children: []model.EvolutionNode{
				{Name: "pikachu", Detail: "Level 16"},
			},
		},
	}

	var buf bytes.Buffer
	writeRecord(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "Pikachu  #025\n")
	assert.Contains(t, out, "Stores electricity.\n")
	assert.Contains(t, out, "\nTypes\n  electric\n")
	assert.Contains(t, out, "\nEvolution\n  pichu -> pikachu (Level 16)\n")
}

func TestWriteRecordNoDescriptionNoEvolution(t *testing.T) {
	var buf bytes.Buffer
	writeRecord(&buf, model.Record{ID: 132, Name: "Ditto"})
	assert.Equal(t, "Ditto  #132\n", buf.String())
}

func TestSelectCandidates(t *testing.T) {
	index := []model.IndexEntry{
		{ID: 1, Name: "bulbasaur"},
		{ID: 2, Name: "ivysaur"},
		{ID: 3, Name: "venusaur"},
		{ID: 25, Name: "pikachu"},
	}

	tests := []struct {
		name  string
		text  string
		limit int
		want  []int
	}{
		{name: "numeric selects id", text: "25", limit: 10, want: []int{25}},
		{name: "numeric miss", text: "9999", limit: 10, want: []int{}},
		{name: "substring on name", text: "saur", limit: 10, want: []int{1, 2, 3}},
		{name: "case-insensitive", text: "PIKA", limit: 10, want: []int{25}},
		{name: "empty takes dex order", text: "", limit: 2, want: []int{1, 2}},
		{name: "limit bounds matches", text: "saur", limit: 2, want: []int{1, 2}},
		{name: "zero limit means unbounded", text: "", limit: 0, want: []int{1, 2, 3, 25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectCandidates(index, tt.text, tt.limit)
			ids := make([]int, 0, len(got))
			for _, entry := range got {
				ids = append(ids, entry.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestInitAppWiring(t *testing.T) {
	app, err := InitApp(context.Background(), []string{"pokectl", "dq", "pikachu"})
	require.NoError(t, err)
	assert.Equal(t, "pokectl", app.Name)

	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"dq", "eq", "potd", "purge", "tq"}, names)

	// Flags are sorted for --help.
	for _, c := range app.Commands {
		for i := 1; i < len(c.Flags); i++ {
			assert.LessOrEqual(t, c.Flags[i-1].Names()[0], c.Flags[i].Names()[0],
				"%s flags unsorted", c.Name)
		}
	}
}
