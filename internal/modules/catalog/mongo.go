package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type variantDocument struct {
	ID    string `bson:"id"`
	Color string `bson:"color"`
	Size  string `bson:"size"`
	Stock int    `bson:"stock"`
}

type productDocument struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty"`
	Name     string               `bson:"name"`
	Price    primitive.Decimal128 `bson:"price"`
	Category string               `bson:"category"`
	Variants []variantDocument    `bson:"variants"`
}

func toDocument(p *Product) (productDocument, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return productDocument{}, fmt.Errorf("encode price: %w", err)
	}
	doc := productDocument{
		Name:     p.Name,
		Price:    price,
		Category: p.Category,
		Variants: make([]variantDocument, 0, len(p.Variants)),
	}
	if p.ID != "" {
		oid, err := primitive.ObjectIDFromHex(p.ID)
		if err != nil {
			return productDocument{}, ErrProductNotFound
		}
		doc.ID = oid
	}
	for _, v := range p.Variants {
		doc.Variants = append(doc.Variants, variantDocument{ID: v.ID, Color: v.Color, Size: v.Size, Stock: v.Stock})
	}
	return doc, nil
}

func fromDocument(doc productDocument) (*Product, error) {
	price, err := decimal.NewFromString(doc.Price.String())
	if err != nil {
		return nil, fmt.Errorf("decode price of %s: %w", doc.ID.Hex(), err)
	}
	p := &Product{
		ID:       doc.ID.Hex(),
		Name:     doc.Name,
		Price:    price,
		Category: doc.Category,
		Variants: make([]Variant, 0, len(doc.Variants)),
	}
	for _, v := range doc.Variants {
		p.Variants = append(p.Variants, Variant{ID: v.ID, Color: v.Color, Size: v.Size, Stock: v.Stock})
	}
	return p, nil
}

type mongoRepo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// ConnectMongo dials uri, pings the server and returns a Repository over
// database.collection. Close disconnects the client.
func ConnectMongo(ctx context.Context, uri, database, collection string) (Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &mongoRepo{client: client, coll: client.Database(database).Collection(collection)}, nil
}

func (r *mongoRepo) Create(ctx context.Context, p *Product) error {
	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	doc.ID = primitive.NilObjectID
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	p.ID = oid.Hex()
	return nil
}

func (r *mongoRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return fromDocument(doc)
}

func (r *mongoRepo) List(ctx context.Context) ([]*Product, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	products := make([]*Product, 0, len(docs))
	for _, doc := range docs {
		p, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *mongoRepo) Update(ctx context.Context, p *Product) error {
	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *mongoRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	_, err = r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *mongoRepo) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *mongoRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *mongoRepo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
