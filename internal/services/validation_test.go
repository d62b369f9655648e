package services

import (
	"errors"
	"testing"

	apperrors "bhms/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTenantFieldsEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"zhang@example.com", true},
		{"li.si+rent@example.co", true},
		{"", false},
		{"not-an-email", false},
		{"Zhang San <zhang@example.com>", false},
		{"zhang@", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := validateTenantFields("张三", "0901000001", tt.email)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ve *apperrors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, "email", ve.Field)
		})
	}
}
