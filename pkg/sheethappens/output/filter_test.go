package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

func TestFilterMatch(t *testing.T) {
	names := []string{"name", "qty", "unit price"}
	row := mkrow(7, str("bolt"), num(12), models.FloatValue(0.25))

	tests := []struct {
		src  string
		want bool
	}{
		{`qty > 10`, true},
		{`qty > 10 && name == "nut"`, false},
		{`name startsWith "bo"`, true},
		{`$env["unit price"] < 1`, true},
		{`_row == 7`, true},
		{`missing == nil`, true},
		{`missing`, false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := NewFilter(tt.src)
			require.NoError(t, err)
			got, err := f.Match(row, names)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterLetters(t *testing.T) {
	f, err := NewFilter(`B == 12`)
	require.NoError(t, err)
	ok, err := f.Match(mkrow(2, str("x"), num(12)), nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFilterErrors(t *testing.T) {
	_, err := NewFilter(`qty >`)
	assert.Error(t, err)

	f, err := NewFilter(`qty + 1`)
	require.NoError(t, err)
	_, err = f.Match(mkrow(2, num(1)), []string{"qty"})
	assert.ErrorContains(t, err, "expected bool")
	assert.Equal(t, "qty + 1", f.String())
}
