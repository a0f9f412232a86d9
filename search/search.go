package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skewcube/skewcube-backend-go/models"
)

// NewClient connects to Elasticsearch and verifies the cluster responds.
func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, err
	}

	res, err := client.Info()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch: %s: %s", res.Status(), body)
	}
	return client, nil
}

// Service answers product searches. When ES is nil every query falls back to
// a Mongo regex scan over name and brand, so the endpoint works without a
// search cluster.
type Service struct {
	ES    *elasticsearch.Client
	Index string
	DB    *mongo.Database
}

// IndexProduct upserts the product document into the search index.
func (s *Service) IndexProduct(ctx context.Context, p models.Product) error {
	if s.ES == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(p); err != nil {
		return err
	}
	res, err := s.ES.Index(s.Index, &buf,
		s.ES.Index.WithDocumentID(p.ID.Hex()),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch index: %s", res.Status())
	}
	return nil
}

// DeleteProduct removes the product from the search index.
func (s *Service) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	if s.ES == nil {
		return nil
	}
	res, err := s.ES.Delete(s.Index, id.Hex(), s.ES.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("elasticsearch delete: %s", res.Status())
	}
	return nil
}

// Search finds products whose name or brand matches word.
func (s *Service) Search(ctx context.Context, word string, skip, limit int) (int64, []models.Product, error) {
	if s.ES != nil {
		return s.searchES(ctx, word, skip, limit)
	}
	return s.searchMongo(ctx, word, skip, limit)
}

func (s *Service) searchES(ctx context.Context, word string, from, size int) (int64, []models.Product, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     word,
				"fields":    []string{"name^2", "brand"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("elasticsearch search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = hit.Source
	}
	return r.Hits.Total.Value, prods, nil
}

func (s *Service) searchMongo(ctx context.Context, word string, skip, limit int) (int64, []models.Product, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"name": bson.M{"$regex": word, "$options": "i"}},
		bson.M{"brand": bson.M{"$regex": word, "$options": "i"}},
	}}

	coll := s.DB.Collection("products")
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, nil, err
	}

	cursor, err := coll.Find(ctx, filter,
		options.Find().SetSkip(int64(skip)).SetLimit(int64(limit)))
	if err != nil {
		return 0, nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return 0, nil, err
	}
	return total, products, nil
}
