package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"jane.doe@example.com", "Jane Doe"},
		{"jane_m_doe@example.com", "Jane Doe"},
		{"jo+forms@example.com", "Jo"},
		{"élodie-martin@example.fr", "Élodie Martin"},
		{"...@example.com", ""},
		{"@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.address))
		})
	}
}
