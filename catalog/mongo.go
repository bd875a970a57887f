package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "rooms"

// Mongo 文档库目录存储，集合 rooms，按业务 id 字段查询
type Mongo struct {
	client *mongo.Client
	rooms  *mongo.Collection
}

func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if database == "" {
		return nil, fmt.Errorf("mongo: database is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	coll := client.Database(database).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	return &Mongo{client: client, rooms: coll}, nil
}

func (m *Mongo) Create(ctx context.Context, name string) (Room, error) {
	r := newRoom(name)
	if _, err := m.rooms.InsertOne(ctx, r); err != nil {
		return Room{}, fmt.Errorf("insert room: %w", err)
	}
	return r, nil
}

func (m *Mongo) List(ctx context.Context, state string) ([]Room, error) {
	filter := bson.M{}
	if state != "" {
		filter["game_state"] = state
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(listLimit)
	cur, err := m.rooms.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []Room{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) Get(ctx context.Context, id string) (Room, error) {
	var r Room
	err := m.rooms.FindOne(ctx, bson.M{"id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, err
	}
	return r, nil
}

func (m *Mongo) SetGameState(ctx context.Context, id, state string) error {
	before, err := earlierStates(state)
	if err != nil {
		return err
	}
	if len(before) > 0 {
		filter := bson.M{"id": id, "game_state": bson.M{"$in": before}}
		res, err := m.rooms.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"game_state": state}})
		if err != nil {
			return err
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}
	// 记录不存在，或阶段已不早于 state
	n, err := m.rooms.CountDocuments(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}
