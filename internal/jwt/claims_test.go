package jwt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorefrontClaims_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		claims  StorefrontClaims
		wantErr string
	}{
		{
			name:   "complete claims",
			claims: StorefrontClaims{Role: "customer", Name: "Avery Stone", Email: "avery@example.com"},
		},
		{
			name:   "name is optional",
			claims: StorefrontClaims{Role: "customer", Email: "avery@example.com"},
		},
		{
			name:    "missing role",
			claims:  StorefrontClaims{Email: "avery@example.com"},
			wantErr: "missing expected claim(s): role",
		},
		{
			name:    "missing email",
			claims:  StorefrontClaims{Role: "customer"},
			wantErr: "missing expected claim(s): email",
		},
		{
			name:    "missing everything",
			claims:  StorefrontClaims{},
			wantErr: "missing expected claim(s): role, email",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			err := test.claims.Validate(context.Background())

			if test.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, test.wantErr)
			}
		})
	}
}

func TestStorefrontClaims_Admin(t *testing.T) {
	assert.True(t, (&StorefrontClaims{Role: "admin"}).Admin())
	assert.False(t, (&StorefrontClaims{Role: "customer"}).Admin())
	assert.False(t, (&StorefrontClaims{}).Admin())
}
