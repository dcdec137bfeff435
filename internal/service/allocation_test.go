package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

func TestAllocateScholarships(t *testing.T) {
	cases := []struct {
		name      string
		requested int
		proposed  int
		want      int
		errCode   string
	}{
		{"grant below request", 5, 3, 3, ""},
		{"grant equals request", 5, 5, 5, ""},
		{"grant zero", 5, 0, 0, ""},
		{"nothing requested nothing granted", 0, 0, 0, ""},
		{"grant above request", 2, 3, 0, appErrors.ErrQuotaExceeded.Code},
		{"negative grant", 5, -1, 0, appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			granted, err := AllocateScholarships(tc.requested, tc.proposed)
			if tc.errCode != "" {
				require.Error(t, err)
				assert.Equal(t, tc.errCode, appErrors.FromError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, granted)
		})
	}
}

func TestAllocateScholarshipsNeverExceedsRequest(t *testing.T) {
	for requested := 0; requested <= 10; requested++ {
		for proposed := 0; proposed <= requested; proposed++ {
			granted, err := AllocateScholarships(requested, proposed)
			require.NoError(t, err)
			assert.LessOrEqual(t, granted, requested)
			assert.Equal(t, proposed, granted)
		}
	}
}
