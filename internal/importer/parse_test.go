package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letteros/letteros/internal/domain"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a@x.com,Ann,pro", []string{"a@x.com", "Ann", "pro"}},
		{"quoted comma", `"a@x.com","Smith, Jr.","gold"`, []string{"a@x.com", "Smith, Jr.", "gold"}},
		{"mixed quoting", `a@x.com,"Doe, Jane",`, []string{"a@x.com", "Doe, Jane", ""}},
		{"escaped quote", `"b@x.com","The ""Boss""",""`, []string{"b@x.com", `The "Boss"`, ""}},
		{"trims", " a@x.com , Ann ", []string{"a@x.com", "Ann"}},
		{"single field", "a@x.com", []string{"a@x.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLine(tt.line))
		})
	}
}

func TestTagConstruction(t *testing.T) {
	file := "email,name,plan\n" +
		"a@x.com,Ann,true\n" +
		"b@x.com,Bob,pro\n" +
		"c@x.com,Cara,false\n"

	p, err := Parse(file, nil, 10)
	require.NoError(t, err)
	require.Len(t, p.Candidates, 3)
	assert.Equal(t, []string{"plan"}, p.Candidates[0].Tags)
	assert.Equal(t, []string{"plan:pro"}, p.Candidates[1].Tags)
	assert.Equal(t, []string{}, p.Candidates[2].Tags)
	assert.Equal(t, "Ann", p.Candidates[0].Name)
}

func TestTagFor(t *testing.T) {
	tests := []struct {
		cell string
		tag  string
		ok   bool
	}{
		{"true", "vip", true},
		{"TRUE", "vip", true},
		{"1", "vip", true},
		{"false", "", false},
		{"0", "", false},
		{"", "", false},
		{"gold", "vip:gold", true},
	}
	for _, tt := range tests {
		tag, ok := TagFor("vip", tt.cell)
		assert.Equal(t, tt.ok, ok, tt.cell)
		assert.Equal(t, tt.tag, tag, tt.cell)
	}
}

func TestParseDedupWithinFile(t *testing.T) {
	file := "email\nsame@x.com\nSAME@x.com\n"

	p, err := Parse(file, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Total)
	assert.Equal(t, 1, p.DuplicatesInFile)
	assert.Equal(t, 0, p.DuplicatesExisting)
	assert.Equal(t, 1, p.DuplicateCount)
}

func TestParseReimportAgainstUnchangedList(t *testing.T) {
	file := "email,name\na@x.com,Ann\nb@x.com,Bob\na@x.com,Ann again\n"

	first, err := Parse(file, nil, 10)
	require.NoError(t, err)
	require.Equal(t, 2, first.Total)

	var list []domain.Subscriber
	for _, c := range first.Candidates {
		list = append(list, domain.Subscriber{Email: c.Email})
	}

	again, err := Parse(file, list, 10)
	require.NoError(t, err)
	assert.Zero(t, again.Total)
	assert.Equal(t, 3, again.DuplicateCount)
	assert.Equal(t, 3, again.DuplicatesExisting)
}

func TestParseEdgeCases(t *testing.T) {
	t.Run("no email column", func(t *testing.T) {
		_, err := Parse("name,plan\nAnn,pro\n", nil, 10)
		assert.ErrorIs(t, err, ErrNoEmailColumn)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := Parse("\n\n", nil, 10)
		assert.ErrorIs(t, err, ErrNoEmailColumn)
	})

	t.Run("email only header gives empty tags", func(t *testing.T) {
		p, err := Parse("Email\r\na@x.com\r\n\r\nb@x.com\r\n", nil, 10)
		require.NoError(t, err)
		require.Len(t, p.Candidates, 2)
		for _, c := range p.Candidates {
			assert.Empty(t, c.Tags)
			assert.NotNil(t, c.Tags)
		}
	})

	t.Run("rows without @ are skipped silently", func(t *testing.T) {
		p, err := Parse("email\nnot-an-email\n\na@x.com\n", nil, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Total)
		assert.Zero(t, p.DuplicateCount)
	})

	t.Run("localized headers", func(t *testing.T) {
		p, err := Parse("Correo,Nombre,Pais\na@x.com,Ana,ES\n", nil, 10)
		require.NoError(t, err)
		assert.Equal(t, "Correo", p.Columns.Email)
		assert.Equal(t, "Nombre", p.Columns.Name)
		assert.Equal(t, []string{"Pais:ES"}, p.Candidates[0].Tags)
	})

	t.Run("email beats looser mail match", func(t *testing.T) {
		cols, err := DetectColumns([]string{"mailing_opt_in", "email"})
		require.NoError(t, err)
		assert.Equal(t, "email", cols.Email)
		assert.Equal(t, []string{"mailing_opt_in"}, cols.Tags)
	})

	t.Run("repeated tags are kept per subscriber", func(t *testing.T) {
		p, err := Parse("email,vip\na@x.com,1\nb@x.com,1\n", nil, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"vip"}, p.Candidates[0].Tags)
		assert.Equal(t, []string{"vip"}, p.Candidates[1].Tags)
	})
}

func TestParseSampleIsCapped(t *testing.T) {
	file := "email\n"
	for i := 0; i < 25; i++ {
		file += string(rune('a'+i)) + "@x.com\n"
	}
	p, err := Parse(file, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, p.Total)
	assert.Len(t, p.Sample, 10)
}
