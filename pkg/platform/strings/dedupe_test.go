package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"blank", "", []string{}},
		{"only separators and spaces", " , ,, ", []string{}},
		{"single field", "email", []string{"email"}},
		{"trims entries", " name , email ,message", []string{"name", "email", "message"}},
		{"drops repeats keeping first position", "a@x.com,b@x.com,a@x.com", []string{"a@x.com", "b@x.com"}},
		{"keeps case", "Name,name", []string{"Name", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.input))
		})
	}
}

func TestSplitListFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"blank", "", []string{}},
		{"lowercases scheme and host", "HTTPS://Example.COM", []string{"https://example.com"}},
		{"case variants collapse", "https://a.com, https://A.com,HTTPS://a.com", []string{"https://a.com"}},
		{"suffix and wildcard entries survive", " .Example.com , * ", []string{".example.com", "*"}},
		{"order of first appearance", "https://b.com,https://a.com,https://B.com", []string{"https://b.com", "https://a.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitListFold(tt.input))
		})
	}
}
