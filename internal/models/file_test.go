package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileMatches(t *testing.T) {
	f := File{
		DisplayName:      "Quarterly report",
		Category:         "Network Security",
		OriginalFilename: "q3_FINAL.pdf",
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"report", true},
		{"REPORT", true},
		{"network sec", true},
		{"final.PDF", true},
		{"q3_", true},
		{"budget", false},
		{"report.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Matches(tt.query))
		})
	}
}

func TestIdentityIsAdmin(t *testing.T) {
	assert.True(t, Identity{Username: "root", Role: RoleAdmin}.IsAdmin())
	assert.False(t, Identity{Username: "alice", Role: RoleUser}.IsAdmin())
	assert.False(t, Role("superuser").Valid())
}
