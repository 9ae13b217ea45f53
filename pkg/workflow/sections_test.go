package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSectionsAtHeadings(t *testing.T) {
	layout := "# A\nbody1\n# B\nbody2"

	sections := SplitSections(layout)
	require.Len(t, sections, 2)
	assert.Equal(t, "A", sections[0].Heading)
	assert.Equal(t, "# A\nbody1", sections[0].Content)
	assert.Equal(t, "B", sections[1].Heading)
	assert.Equal(t, "# B\nbody2", sections[1].Content)
}

func TestSplitSectionsMixedLevels(t *testing.T) {
	layout := "# Intro\n- hook\n\n## Deep Dive\n- details\n\n# Close\n- wrap up\n"

	sections := SplitSections(layout)
	require.Len(t, sections, 3)
	assert.Equal(t, "Intro", sections[0].Heading)
	assert.Equal(t, "Deep Dive", sections[1].Heading)
	assert.Equal(t, "Close", sections[2].Heading)
	assert.Equal(t, "## Deep Dive\n- details", sections[1].Content)
}

func TestSplitSectionsNoHeadings(t *testing.T) {
	layout := "just a plain paragraph\nspread over two lines"

	sections := SplitSections(layout)
	require.Len(t, sections, 1)
	assert.Empty(t, sections[0].Heading)
	assert.Equal(t, layout, sections[0].Content)
}

func TestSplitSectionsPreambleBecomesSection(t *testing.T) {
	layout := "Working notes before any heading.\n\n# First\n- point"

	sections := SplitSections(layout)
	require.Len(t, sections, 2)
	assert.Empty(t, sections[0].Heading)
	assert.Equal(t, "Working notes before any heading.", sections[0].Content)
	assert.Equal(t, "First", sections[1].Heading)
}

func TestSplitSectionsEmptyLayout(t *testing.T) {
	assert.Nil(t, SplitSections(""))
	assert.Nil(t, SplitSections("\n\n\n"))
}
