package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/raffle-console/internal/model"
)

func TestSeatsRoundTrip(t *testing.T) {
	assert.Equal(t, "3,4,42", JoinSeats([]int{3, 4, 42}))
	assert.Equal(t, []int{3, 4, 42}, SplitSeats("3, 4,42"))
	assert.Nil(t, SplitSeats(""))
	assert.Equal(t, []int{1}, SplitSeats("1,x"))
}

func TestRecordRejectsIncompleteEntry(t *testing.T) {
	// The check runs before the database is touched.
	r := NewJournalRepo(nil)
	err := r.Record(context.Background(), model.JournalEntry{Operation: model.OpCreateSale})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}
