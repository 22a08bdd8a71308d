package repository

import (
    "context"
    "errors"
    "fmt"

    "go.mongodb.org/mongo-driver/bson"
    "go.mongodb.org/mongo-driver/mongo"
    "go.mongodb.org/mongo-driver/mongo/options"

    "github.com/iliyamo/salon-booking/internal/model"
)

// Collection names used by the MongoDB store.
const (
    ServicesCollection = "services"
    BookingsCollection = "bookings"
    CalendarCollection = "calendar"

    // calendarDocID identifies the single calendar document every booking
    // transaction writes to.
    calendarDocID = "salon"
)

// MongoServiceRepo reads and seeds the services collection.
type MongoServiceRepo struct {
    coll *mongo.Collection
}

// NewMongoServiceRepo binds a MongoServiceRepo to db.
func NewMongoServiceRepo(db *mongo.Database) *MongoServiceRepo {
    return &MongoServiceRepo{coll: db.Collection(ServicesCollection)}
}

func (r *MongoServiceRepo) List(ctx context.Context) ([]model.Service, error) {
    cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
    if err != nil {
        return nil, fmt.Errorf("find services: %w", err)
    }
    out := make([]model.Service, 0)
    if err := cur.All(ctx, &out); err != nil {
        return nil, fmt.Errorf("decode services: %w", err)
    }
    return out, nil
}

func (r *MongoServiceRepo) GetByID(ctx context.Context, id string) (*model.Service, error) {
    var s model.Service
    err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
    if errors.Is(err, mongo.ErrNoDocuments) {
        return nil, ErrServiceNotFound
    }
    if err != nil {
        return nil, fmt.Errorf("find service: %w", err)
    }
    return &s, nil
}

func (r *MongoServiceRepo) Count(ctx context.Context) (int64, error) {
    n, err := r.coll.CountDocuments(ctx, bson.M{})
    if err != nil {
        return 0, fmt.Errorf("count services: %w", err)
    }
    return n, nil
}

func (r *MongoServiceRepo) InsertMany(ctx context.Context, services []model.Service) error {
    if len(services) == 0 {
        return nil
    }
    docs := make([]interface{}, 0, len(services))
    for _, s := range services {
        docs = append(docs, s)
    }
    if _, err := r.coll.InsertMany(ctx, docs); err != nil {
        return fmt.Errorf("insert services: %w", err)
    }
    return nil
}

// MongoBookingRepo persists bookings in MongoDB.  Creation runs in a
// multi-document transaction that first increments the shared calendar
// document; concurrent transactions touching that document hit a write
// conflict, so only one of two overlapping creations can commit.
// Transactions require a replica set or sharded cluster.
type MongoBookingRepo struct {
    client   *mongo.Client
    bookings *mongo.Collection
    calendar *mongo.Collection
}

// NewMongoBookingRepo binds a MongoBookingRepo to db.
func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
    return &MongoBookingRepo{
        client:   db.Client(),
        bookings: db.Collection(BookingsCollection),
        calendar: db.Collection(CalendarCollection),
    }
}

func activeOverlapFilter(b *model.Booking) bson.M {
    return bson.M{
        "status":    bson.M{"$in": bson.A{model.BookingStatusPending, model.BookingStatusConfirmed}},
        "startTime": bson.M{"$lt": b.EndTime.UTC()},
        "endTime":   bson.M{"$gt": b.StartTime.UTC()},
    }
}

// CreateIfNoConflict inserts b unless an active booking overlaps it.  The
// transaction body is retried by the driver on TransientTransactionError,
// so a writer that lost the calendar write conflict re-runs the overlap
// count against the winner's committed booking and gets ErrSlotTaken.
func (r *MongoBookingRepo) CreateIfNoConflict(ctx context.Context, b *model.Booking) error {
    sess, err := r.client.StartSession()
    if err != nil {
        return fmt.Errorf("could not start mongo session: %w", err)
    }
    defer sess.EndSession(ctx)

    _, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
        _, err := r.calendar.UpdateOne(sc,
            bson.M{"_id": calendarDocID},
            bson.M{"$inc": bson.M{"version": 1}},
            options.Update().SetUpsert(true),
        )
        if err != nil {
            return nil, fmt.Errorf("lock calendar: %w", err)
        }

        n, err := r.bookings.CountDocuments(sc, activeOverlapFilter(b))
        if err != nil {
            return nil, fmt.Errorf("count overlaps: %w", err)
        }
        if n > 0 {
            return nil, ErrSlotTaken
        }

        if _, err := r.bookings.InsertOne(sc, b); err != nil {
            return nil, fmt.Errorf("insert booking: %w", err)
        }
        return nil, nil
    })
    return err
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
    var b model.Booking
    err := r.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
    if errors.Is(err, mongo.ErrNoDocuments) {
        return nil, ErrBookingNotFound
    }
    if err != nil {
        return nil, fmt.Errorf("find booking: %w", err)
    }
    normalizeBooking(&b)
    return &b, nil
}

func (r *MongoBookingRepo) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus) error {
    res, err := r.bookings.UpdateOne(ctx,
        bson.M{"_id": id, "status": from},
        bson.M{"$set": bson.M{"status": to}},
    )
    if err != nil {
        return fmt.Errorf("update booking status: %w", err)
    }
    if res.MatchedCount > 0 {
        return nil
    }
    n, err := r.bookings.CountDocuments(ctx, bson.M{"_id": id})
    if err != nil {
        return fmt.Errorf("check booking: %w", err)
    }
    if n == 0 {
        return ErrBookingNotFound
    }
    return ErrStatusChanged
}

func (r *MongoBookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
    filter := bson.M{}
    rng := bson.M{}
    if !f.From.IsZero() {
        rng["$gte"] = f.From.UTC()
    }
    if !f.To.IsZero() {
        rng["$lt"] = f.To.UTC()
    }
    if len(rng) > 0 {
        filter["startTime"] = rng
    }
    cur, err := r.bookings.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}}))
    if err != nil {
        return nil, fmt.Errorf("find bookings: %w", err)
    }
    out := make([]model.Booking, 0)
    if err := cur.All(ctx, &out); err != nil {
        return nil, fmt.Errorf("decode bookings: %w", err)
    }
    for i := range out {
        normalizeBooking(&out[i])
    }
    return out, nil
}

// BSON dates decode in local time.
func normalizeBooking(b *model.Booking) {
    b.StartTime = b.StartTime.UTC()
    b.EndTime = b.EndTime.UTC()
    b.CreatedAt = b.CreatedAt.UTC()
}
