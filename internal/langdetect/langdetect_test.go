package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhatlangDetectorDetect(t *testing.T) {
	t.Parallel()

	d := NewWhatlangDetector()

	tests := []struct {
		name         string
		text         string
		wantCode     string
		wantReliable bool
	}{
		{
			name:         "detects_spanish",
			text:         "la puerta está cerrada y el perro duerme en la cocina",
			wantCode:     "es",
			wantReliable: true,
		},
		{
			name:         "detects_english",
			text:         "the quick brown fox jumps over the lazy dog near the river",
			wantCode:     "en",
			wantReliable: true,
		},
		{
			name:         "detects_german",
			text:         "die Tür ist geschlossen und der Hund schläft in der Küche",
			wantCode:     "de",
			wantReliable: true,
		},
		{
			name:         "empty_text_is_undetected",
			text:         "",
			wantCode:     "",
			wantReliable: false,
		},
		{
			name:         "whitespace_only_is_undetected",
			text:         "  \n\t ",
			wantCode:     "",
			wantReliable: false,
		},
		{
			name:         "digits_carry_no_signal",
			text:         "1234 5678 90",
			wantCode:     "",
			wantReliable: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, reliable := d.Detect(tc.text)
			assert.Equal(t, tc.wantCode, code)
			assert.Equal(t, tc.wantReliable, reliable)
		})
	}
}
