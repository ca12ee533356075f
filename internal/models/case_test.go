package models_test

import (
	"testing"
	"time"

	"github.com/myrjola/nearmiss/internal/models"
	"github.com/stretchr/testify/require"
)

func TestTimestamp(t *testing.T) {
	at := time.Date(2024, time.January, 1, 12, 0, 5, 999, time.Local)
	ts := models.NewTimestamp(at)
	require.Equal(t, "20240101120005", ts)

	created, err := models.Case{Timestamp: ts}.CreatedAt()
	require.NoError(t, err)
	require.True(t, at.Truncate(time.Second).Equal(created))

	// Zero padding keeps string order chronological.
	require.Less(t, models.NewTimestamp(at.Add(-time.Hour*24*40)), ts)
}
