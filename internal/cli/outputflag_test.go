package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputFormatValue_SetRejectsInvalid(t *testing.T) {
	v := &outputFormatValue{format: "table"}
	assert.Error(t, v.Set("xml"))
	assert.Equal(t, "table", v.format, "invalid Set must not mutate the stored format")
}

func TestOutputFormatValue_SetAcceptsKnownFormats(t *testing.T) {
	v := &outputFormatValue{format: "table"}
	for _, format := range []string{"json", "yaml", "quiet", "table"} {
		assert.NoError(t, v.Set(format))
		assert.Equal(t, format, v.String())
	}
}
