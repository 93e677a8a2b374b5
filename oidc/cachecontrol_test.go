package oidc

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_RemainingLifetime(t *testing.T) {
	testCases := []struct {
		name         string
		cacheControl string
		age          string
		wantSeconds  int64
		wantKnown    bool
	}{
		{
			name:         "max-age minus age",
			cacheControl: "max-age=3600",
			age:          "10",
			wantSeconds:  3590,
			wantKnown:    true,
		},
		{
			name:         "max-age among other directives",
			cacheControl: "public, max-age=300, must-revalidate",
			age:          "0",
			wantSeconds:  300,
			wantKnown:    true,
		},
		{
			name:         "age exceeding max-age goes negative",
			cacheControl: "max-age=60",
			age:          "90",
			wantSeconds:  -30,
			wantKnown:    true,
		},
		{
			name:         "age equal to max-age is zero",
			cacheControl: "max-age=60",
			age:          "60",
			wantSeconds:  0,
			wantKnown:    true,
		},
		{
			name:         "missing age",
			cacheControl: "max-age=3600",
			wantKnown:    false,
		},
		{
			name:      "missing cache-control",
			age:       "10",
			wantKnown: false,
		},
		{
			name:      "no headers at all",
			wantKnown: false,
		},
		{
			name:         "cache-control without max-age",
			cacheControl: "no-store",
			age:          "10",
			wantKnown:    false,
		},
		{
			name:         "non-numeric age",
			cacheControl: "max-age=3600",
			age:          "soon",
			wantKnown:    false,
		},
		{
			name:         "non-numeric max-age",
			cacheControl: "max-age=never",
			age:          "10",
			wantKnown:    false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header{}
			if tc.cacheControl != "" {
				header.Set("Cache-Control", tc.cacheControl)
			}
			if tc.age != "" {
				header.Set("Age", tc.age)
			}

			seconds, known := RemainingLifetime(header)

			assert.Equal(t, tc.wantKnown, known)
			if tc.wantKnown {
				assert.Equal(t, tc.wantSeconds, seconds)
			}
		})
	}
}
