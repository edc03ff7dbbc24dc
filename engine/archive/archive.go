// Package archive keeps an embedding-indexed history of video summaries in
// Qdrant, so past takes on an asset can be found by similarity.
package archive

import (
	"context"
	"fmt"
	"hash/fnv"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Entry is one archived summary.
type Entry struct {
	VideoID   string
	Channel   string
	Title     string
	Published string
	Summary   string
	Sentiment string
	Vector    []float32
}

// Hit is one similarity search result.
type Hit struct {
	VideoID   string
	Channel   string
	Title     string
	Published string
	Summary   string
	Sentiment string
	Score     float32
}

// pointsAPI is the slice of the Qdrant points service the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsAPI is the slice of the Qdrant collections service the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store is the sole owner of all Qdrant operations.
type Store struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("archive: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients builds a Store on provided service clients. Used by tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *Store {
	return &Store{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("archive: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("archive: create collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert stores entries. Point identity derives from the video ID, so
// archiving the same video twice overwrites rather than duplicates.
func (s *Store) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Num{Num: pointID(e.VideoID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: e.Vector},
				},
			},
			Payload: map[string]*pb.Value{
				"video_id":  strValue(e.VideoID),
				"channel":   strValue(e.Channel),
				"title":     strValue(e.Title),
				"published": strValue(e.Published),
				"summary":   strValue(e.Summary),
				"sentiment": strValue(e.Sentiment),
			},
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("archive: upsert %d points: %w", len(points), err)
	}
	return nil
}

// SearchSimilar returns the topK archived summaries nearest to vector,
// optionally restricted to one channel.
func (s *Store) SearchSimilar(ctx context.Context, vector []float32, topK int, channel string) ([]Hit, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if channel != "" {
		req.Filter = &pb.Filter{
			Must: []*pb.Condition{{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: "channel",
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: channel},
						},
					},
				},
			}},
		}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("archive: search: %w", err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		h := Hit{Score: r.GetScore()}
		for k, val := range r.GetPayload() {
			v := val.GetStringValue()
			switch k {
			case "video_id":
				h.VideoID = v
			case "channel":
				h.Channel = v
			case "title":
				h.Title = v
			case "published":
				h.Published = v
			case "summary":
				h.Summary = v
			case "sentiment":
				h.Sentiment = v
			}
		}
		hits[i] = h
	}
	return hits, nil
}

func strValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// pointID maps a video ID onto a stable numeric point identity.
func pointID(videoID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(videoID))
	return h.Sum64()
}
