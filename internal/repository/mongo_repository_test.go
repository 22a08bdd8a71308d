package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/iliyamo/salon-booking/internal/model"
)

const bookingsNS = mtest.TestDb + "." + BookingsCollection

func countResponse(n int64) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func bookingDoc(b *model.Booking) bson.D {
	return bson.D{
		{Key: "_id", Value: b.ID},
		{Key: "serviceId", Value: b.ServiceID},
		{Key: "clientName", Value: b.ClientName},
		{Key: "clientPhone", Value: b.ClientPhone},
		{Key: "startTime", Value: b.StartTime},
		{Key: "endTime", Value: b.EndTime},
		{Key: "status", Value: string(b.Status)},
		{Key: "createdAt", Value: b.CreatedAt},
	}
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

func TestMongoBookingRepo_CreateIfNoConflict(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserts into a free slot", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			countResponse(0),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(),
		)

		require.NoError(mt, repo.CreateIfNoConflict(context.Background(), sampleBooking()))
		assert.Equal(mt, []string{"update", "aggregate", "insert", "commitTransaction"}, commandNames(mt))
	})

	mt.Run("slot taken aborts", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			countResponse(1),
			mtest.CreateSuccessResponse(),
		)

		err := repo.CreateIfNoConflict(context.Background(), sampleBooking())
		assert.ErrorIs(mt, err, ErrSlotTaken)
		assert.Equal(mt, []string{"update", "aggregate", "abortTransaction"}, commandNames(mt))
	})

	mt.Run("write conflict on calendar retries and sees the winner", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    112,
				Name:    "WriteConflict",
				Message: "WriteConflict error: this operation conflicted with another operation",
				Labels:  []string{"TransientTransactionError"},
			}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			countResponse(1),
			mtest.CreateSuccessResponse(),
		)

		err := repo.CreateIfNoConflict(context.Background(), sampleBooking())
		assert.ErrorIs(mt, err, ErrSlotTaken)
		assert.Equal(mt,
			[]string{"update", "abortTransaction", "update", "aggregate", "abortTransaction"},
			commandNames(mt))
	})

	mt.Run("write conflict then free slot commits", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    112,
				Name:    "WriteConflict",
				Message: "WriteConflict",
				Labels:  []string{"TransientTransactionError"},
			}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			countResponse(0),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(),
		)

		require.NoError(mt, repo.CreateIfNoConflict(context.Background(), sampleBooking()))
	})

	mt.Run("non-transient error is returned", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}),
			mtest.CreateSuccessResponse(),
		)

		err := repo.CreateIfNoConflict(context.Background(), sampleBooking())
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrSlotTaken)
		assert.Contains(mt, err.Error(), "lock calendar")
	})
}

func TestMongoBookingRepo_UpdateStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("applied", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.UpdateStatus(context.Background(), "b-1", model.BookingStatusConfirmed, model.BookingStatusCancelled)
		assert.NoError(mt, err)
	})

	mt.Run("status changed underneath", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			countResponse(1),
		)

		err := repo.UpdateStatus(context.Background(), "b-1", model.BookingStatusConfirmed, model.BookingStatusCancelled)
		assert.ErrorIs(mt, err, ErrStatusChanged)
	})

	mt.Run("unknown id", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			countResponse(0),
		)

		err := repo.UpdateStatus(context.Background(), "missing", model.BookingStatusConfirmed, model.BookingStatusCancelled)
		assert.ErrorIs(mt, err, ErrBookingNotFound)
	})
}

func TestMongoBookingRepo_GetByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		want := sampleBooking()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch, bookingDoc(want)))

		got, err := repo.GetByID(context.Background(), want.ID)
		require.NoError(mt, err)
		assert.Equal(mt, want.ID, got.ID)
		assert.Equal(mt, model.BookingStatusConfirmed, got.Status)
		assert.True(mt, got.StartTime.Equal(want.StartTime))
		assert.Equal(mt, time.UTC, got.StartTime.Location())
		assert.Equal(mt, time.UTC, got.EndTime.Location())
		assert.Nil(mt, got.ClientEmail)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(mt, err, ErrBookingNotFound)
	})
}

func TestMongoBookingRepo_List(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("date range filter", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		first := sampleBooking()
		second := sampleBooking()
		second.ID = "b-2"
		second.StartTime = first.StartTime.Add(time.Hour)
		second.EndTime = first.EndTime.Add(time.Hour)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch,
			bookingDoc(first), bookingDoc(second)))

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 0, 1)
		got, err := repo.List(context.Background(), model.BookingFilter{From: from, To: to})
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "b-1", got[0].ID)
		assert.Equal(mt, "b-2", got[1].ID)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		assert.True(mt, evt.Command.Lookup("filter", "startTime", "$gte").Time().Equal(from))
		assert.True(mt, evt.Command.Lookup("filter", "startTime", "$lt").Time().Equal(to))
	})

	mt.Run("empty", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch))

		got, err := repo.List(context.Background(), model.BookingFilter{})
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})
}
