package postgres

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"companyapp/pkg/platform/sentinel"
)

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(&pq.Error{Code: "23505"}), sentinel.ErrConflict)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "08006"}), sentinel.ErrUnavailable)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "57P01"}), sentinel.ErrUnavailable)

	other := errors.New("plain")
	assert.Equal(t, other, mapError(other))
	assert.NoError(t, mapError(nil))
}
