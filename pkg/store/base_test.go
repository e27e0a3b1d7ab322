package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emotibot/emotibot/pkg/models"
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"emotibot_memory", true},
		{"Notes2024", true},
		{"", false},
		{"a:b", false},
		{"my-memory", false},
		{`x"; drop table y`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.name)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, models.ErrStorage)
		})
	}
}
